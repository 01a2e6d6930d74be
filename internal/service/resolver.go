package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/risinglions/jobtrack/internal/core"
	"github.com/risinglions/jobtrack/internal/domain/model"
)

// ResolverOptions groups dependencies for Resolver.
//
// Both repositories are required; Logger is optional.
type ResolverOptions struct {
	Agents   core.AgentRepository
	Profiles core.ProfileRepository
	Logger   *slog.Logger
}

// Resolver translates the raw agent/profile references carried by an
// ingestion payload into internal identifiers.
//
// Resolution order per entity: externally-issued identifier first (exact
// match), then human-readable name (case-insensitive exact match). An
// unmatched reference resolves to null, never an error. When the profile
// resolves but the agent does not, the profile's own linked agent is
// adopted; the fallback never runs the other way.
type Resolver struct {
	agents   core.AgentRepository
	profiles core.ProfileRepository
	logger   *slog.Logger
}

// NewResolver constructs a new Resolver.
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	if opts.Agents == nil {
		return nil, errors.New("AgentRepository is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("ProfileRepository is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{
		agents:   opts.Agents,
		profiles: opts.Profiles,
		logger:   opts.Logger,
	}, nil
}

// Resolve fills in ProfileID and AgentID on the update from its raw
// references. Already-resolved identifiers are left untouched.
func (r *Resolver) Resolve(ctx context.Context, update *model.JobUpdate) {
	profile := r.resolveProfile(ctx, update)
	if profile != nil && update.ProfileID == nil {
		update.ProfileID = &profile.ID
	}

	if update.AgentID == nil {
		update.AgentID = r.resolveAgentID(ctx, update, profile)
	}
}

func (r *Resolver) resolveProfile(ctx context.Context, update *model.JobUpdate) *model.Profile {
	if update.ProfileTag != "" {
		profile, err := r.profiles.GetByFilterTag(ctx, update.ProfileTag)
		if err == nil {
			return profile
		}
	}
	if update.ProfileName != "" {
		profile, err := r.profiles.GetByName(ctx, update.ProfileName)
		if err == nil {
			return profile
		}
		r.logger.DebugContext(ctx, "profile reference did not resolve",
			"profile_name", update.ProfileName,
			"profile_tag", update.ProfileTag)
	}
	return nil
}

func (r *Resolver) resolveAgentID(
	ctx context.Context,
	update *model.JobUpdate,
	profile *model.Profile,
) *string {
	if update.AgentExternalID != "" {
		agent, err := r.agents.GetByTrackerUserID(ctx, update.AgentExternalID)
		if err == nil {
			return &agent.ID
		}
	}
	if update.AgentName != "" {
		agent, err := r.agents.GetByName(ctx, update.AgentName)
		if err == nil {
			return &agent.ID
		}
	}

	// Profile-to-agent fallback: a routed profile carries a default owner.
	if profile != nil && profile.AgentID != nil {
		return profile.AgentID
	}
	return nil
}
