package trust

import (
	"civiclens/portal-backend/pkg/validate"
)

// Discrepancy is the absolute percentage-point gap between a project's
// official completion claim and the AI-estimated completion.
type Discrepancy struct {
	Gap     int  `json:"gap"`
	Flagged bool `json:"flagged"`
}

// DetectDiscrepancy flags an official-vs-AI completion gap that exceeds the
// given threshold. The threshold is a parameter because different surfaces
// alert at different sensitivities (admin dashboards vs report listings).
func DetectDiscrepancy(official, aiEstimated, threshold int) (Discrepancy, error) {
	if err := validate.Range("official", float64(official), 0, 100); err != nil {
		return Discrepancy{}, err
	}
	if err := validate.Range("ai_estimated", float64(aiEstimated), 0, 100); err != nil {
		return Discrepancy{}, err
	}
	if threshold < 0 {
		return Discrepancy{}, validate.Errorf("threshold", "must not be negative, got %d", threshold)
	}

	gap := official - aiEstimated
	if gap < 0 {
		gap = -gap
	}

	return Discrepancy{Gap: gap, Flagged: gap > threshold}, nil
}
