package model

import "strings"

// Outcome is the derived disposition of a job. Null (absent) means
// undetermined; pending marks an open tracked job; won and lost are
// terminal; skipped marks a job deliberately dropped before proposal.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
	OutcomeSkipped Outcome = "skipped"
)

// Valid returns true if the outcome is one of the supported values.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeWon, OutcomeLost, OutcomeSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// statusLexicon maps normalized tracker status labels to outcomes. Labels
// outside the lexicon carry no outcome information.
var statusLexicon = map[string]Outcome{
	"won":         OutcomeWon,
	"closed won":  OutcomeWon,
	"lost":        OutcomeLost,
	"closed lost": OutcomeLost,
}

// MapStatusOutcome maps a free-text tracker status label to an outcome.
// Matching is case-insensitive and ignores surrounding whitespace. The
// second return is false when the label carries no outcome meaning.
func MapStatusOutcome(label string) (Outcome, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	outcome, ok := statusLexicon[normalized]
	return outcome, ok
}
