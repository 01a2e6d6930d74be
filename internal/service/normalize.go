package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/risinglions/jobtrack/internal/domain/model"
)

// NormalizeUpdate converts an untyped webhook payload into the canonical
// job update. The shape is detected structurally: payloads carrying a
// job/client/routing sub-object are the nested automation shape, anything
// else is treated as the flat legacy shape. Normalization fails only when
// the external job identifier is missing.
func NormalizeUpdate(payload map[string]any) (*model.JobUpdate, error) {
	var update *model.JobUpdate
	if isNestedShape(payload) {
		update = normalizeNested(payload)
	} else {
		update = normalizeFlat(payload)
	}

	if err := update.Validate(); err != nil {
		return nil, err
	}
	return update, nil
}

func isNestedShape(payload map[string]any) bool {
	for _, key := range []string{"job", "client", "routing"} {
		if _, ok := payload[key].(map[string]any); ok {
			return true
		}
	}
	return false
}

func normalizeFlat(payload map[string]any) *model.JobUpdate {
	title := coerceNonEmpty(payload["job_title"], payload["title"])
	if title == "" {
		title = "Untitled"
	}

	return &model.JobUpdate{
		JobID:  coerceNonEmpty(payload["job_id"], payload["id"]),
		Title:  title,
		JobURL: coerceString(payload["job_url"]),

		JobDescription: coerceString(payload["job_description"]),

		BudgetType: lowerPtr(coerceString(payload["budget_type"])),
		BudgetMin:  coerceFloat(payload["budget_min"]),
		BudgetMax:  coerceFloat(payload["budget_max"]),
		HourlyMin:  coerceFloat(payload["hourly_min"]),
		HourlyMax:  coerceFloat(payload["hourly_max"]),

		Skills: coerceStringSlice(payload["skills"]),

		ClientCountry:    coerceString(payload["client_country"]),
		ClientRating:     coerceFloat(payload["client_rating"]),
		ClientTotalSpent: coerceFloat(payload["client_total_spent"]),
		ClientHires:      coerceInt(payload["client_hires"]),

		AgentName:       strings.TrimSpace(coerceNonEmpty(payload["agent_name"], payload["agent"])),
		AgentExternalID: strings.TrimSpace(coerceNonEmpty(payload["agent_id"])),
		ProfileName:     strings.TrimSpace(coerceNonEmpty(payload["profile_name"], payload["profile"])),
		ProfileTag:      strings.TrimSpace(coerceNonEmpty(payload["profile_tag"])),

		TrackerTaskID:  coerceString(payload["clickup_task_id"]),
		TrackerTaskURL: coerceString(payload["clickup_task_url"]),
		TrackerStatus:  coerceString(payload["clickup_status"]),

		ProposalText:  coerceString(payload["proposal_text"]),
		GPTModel:      coerceString(payload["gpt_model"]),
		GPTTokensUsed: coerceInt(payload["gpt_tokens_used"]),

		PostedAt:       coerceTime(payload["posted_at"]),
		ProposalSentAt: coerceTime(payload["proposal_sent_at"]),
	}
}

func normalizeNested(payload map[string]any) *model.JobUpdate {
	job, _ := payload["job"].(map[string]any)
	client, _ := payload["client"].(map[string]any)
	routing, _ := payload["routing"].(map[string]any)
	tracker, _ := payload["clickup"].(map[string]any)
	proposal, _ := payload["proposal"].(map[string]any)

	title := coerceNonEmpty(job["title"], job["name"])
	if title == "" {
		title = "Untitled"
	}

	u := &model.JobUpdate{
		JobID:  coerceNonEmpty(job["id"], job["job_id"]),
		Title:  title,
		JobURL: coerceString(job["url"]),

		JobDescription: coerceString(job["description"]),

		Skills: coerceStringSlice(job["skills"]),

		ClientCountry:    coerceString(client["country"]),
		ClientRating:     coerceFloat(client["rating"]),
		ClientTotalSpent: coerceFloat(client["total_spent"]),
		ClientHires:      coerceInt(client["hires"]),

		AgentName:       strings.TrimSpace(coerceNonEmpty(routing["agent"])),
		AgentExternalID: strings.TrimSpace(coerceNonEmpty(routing["agent_id"])),
		ProfileName:     strings.TrimSpace(coerceNonEmpty(routing["profile"])),
		ProfileTag:      strings.TrimSpace(coerceNonEmpty(routing["profile_tag"])),

		TrackerTaskID:  coerceString(tracker["task_id"]),
		TrackerTaskURL: coerceString(tracker["task_url"]),
		TrackerStatus:  coerceString(tracker["status"]),

		ProposalText:  coerceString(proposal["text"]),
		GPTModel:      coerceString(proposal["model"]),
		GPTTokensUsed: coerceInt(proposal["tokens_used"]),

		PostedAt:       coerceTime(job["posted_at"]),
		ProposalSentAt: coerceTime(proposal["sent_at"]),
	}

	budgetType := strings.ToLower(strings.TrimSpace(coerceNonEmpty(job["budget_type"])))
	if budgetType != "" {
		u.BudgetType = &budgetType
	}

	// The budget arrives as a display string; min/max land on the hourly
	// or fixed pair depending on the declared type.
	if raw := coerceNonEmpty(job["budget"]); raw != "" {
		minVal, maxVal := ParseBudgetRange(raw)
		if budgetType == "hourly" {
			u.HourlyMin, u.HourlyMax = minVal, maxVal
		} else {
			u.BudgetMin, u.BudgetMax = minVal, maxVal
		}
	}

	return u
}

var budgetNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseBudgetRange extracts the numeric range from a budget display string
// such as "$1,000 - $3,000" or "52k". Currency symbols and thousands
// separators are stripped; a single number yields min=max; two numbers are
// taken in encountered order with no swap when the first is larger. Strings
// with no digits yield a nil pair.
func ParseBudgetRange(raw string) (*float64, *float64) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	matches := budgetNumberRe.FindAllString(cleaned, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	first, err := strconv.ParseFloat(matches[0], 64)
	if err != nil {
		return nil, nil
	}
	if len(matches) == 1 {
		return &first, &first
	}

	second, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return &first, &first
	}
	return &first, &second
}

// coerceNonEmpty returns the first candidate that coerces to a non-empty
// string.
func coerceNonEmpty(candidates ...any) string {
	for _, c := range candidates {
		if s := coerceString(c); s != nil && *s != "" {
			return *s
		}
	}
	return ""
}

// lowerPtr lowercases the pointed-to string; nil passes through.
func lowerPtr(s *string) *string {
	if s == nil {
		return nil
	}
	lowered := strings.ToLower(*s)
	return &lowered
}

func coerceString(v any) *string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return nil
		}
		return &s
	case float64:
		formatted := strconv.FormatFloat(s, 'f', -1, 64)
		return &formatted
	default:
		return nil
	}
}

// coerceFloat parses loosely formatted numerics. Strings are cleaned of
// currency symbols, commas and whitespace first; anything unparsable
// normalizes to nil, never zero.
func coerceFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		cleaned := strings.TrimSpace(n)
		cleaned = strings.ReplaceAll(cleaned, "$", "")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func coerceInt(v any) *int {
	f := coerceFloat(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

func coerceStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
