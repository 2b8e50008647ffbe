package twitter

import "github.com/xaenox/secondbrain/internal/models"

// Outcome classifies what a single tier produced.
type Outcome int

const (
	// OutcomeAbsent covers transport failures, non-2xx replies and empty content.
	OutcomeAbsent Outcome = iota
	// OutcomeMalformed means the reply did not match the mirror's schema.
	OutcomeMalformed
	// OutcomeThin is usable content below the tier's validity bar.
	OutcomeThin
	OutcomeValid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeThin:
		return "thin"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

type tierResult struct {
	outcome Outcome
	result  models.FetchResult
}

func absent() tierResult {
	return tierResult{outcome: OutcomeAbsent}
}

func malformed() tierResult {
	return tierResult{outcome: OutcomeMalformed}
}
