package trust

import (
	"math"

	"civiclens/portal-backend/pkg/validate"
)

// DelayRisk is the categorical schedule risk assigned to a project.
type DelayRisk string

const (
	DelayRiskLow    DelayRisk = "Low"
	DelayRiskMedium DelayRisk = "Medium"
	DelayRiskHigh   DelayRisk = "High"
)

// Weights of the four trust score factors. They must sum to 1.0 exactly;
// any reweighting has to preserve that invariant.
const (
	WeightProgressAccuracy = 0.40
	WeightTransparency     = 0.20
	WeightCitizenEvidence  = 0.25
	WeightDelayRisk        = 0.15
)

// ScoreInput holds the project fields the trust score is derived from.
type ScoreInput struct {
	OfficialCompletion    int       `json:"official_completion"`
	AIEstimatedCompletion int       `json:"ai_estimated_completion"`
	CitizenReportCount    int       `json:"citizen_report_count"`
	DelayRisk             DelayRisk `json:"delay_risk"`
}

// ScoreBreakdown is the result of the trust score computation, with each
// factor exposed for dashboard display.
type ScoreBreakdown struct {
	ProgressAccuracy float64 `json:"progress_accuracy"`
	TransparencyScore float64 `json:"transparency_score"`
	CitizenEvidence  float64 `json:"citizen_evidence"`
	DelayRiskWeight  float64 `json:"delay_risk_weight"`
	FinalScore       int     `json:"final_score"`
}

// ComputeTrustScore computes the four-factor weighted trust score for a
// project. Deterministic over its input; out-of-range input is a caller
// contract violation and is rejected, never clamped.
func ComputeTrustScore(in ScoreInput) (*ScoreBreakdown, error) {
	if err := validate.Range("official_completion", float64(in.OfficialCompletion), 0, 100); err != nil {
		return nil, err
	}
	if err := validate.Range("ai_estimated_completion", float64(in.AIEstimatedCompletion), 0, 100); err != nil {
		return nil, err
	}
	if in.CitizenReportCount < 0 {
		return nil, validate.Errorf("citizen_report_count", "must not be negative, got %d", in.CitizenReportCount)
	}
	delayRiskWeight, ok := delayRiskWeights[in.DelayRisk]
	if !ok {
		return nil, validate.Errorf("delay_risk", "unknown value %q", in.DelayRisk)
	}

	// Divergence between the official claim and the AI estimate is penalized
	// twice as steeply as raw percentage points, clamped at zero.
	diff := math.Abs(float64(in.OfficialCompletion - in.AIEstimatedCompletion))
	progressAccuracy := math.Max(0, 100-diff*2)

	transparencyScore := transparencyStep(in.CitizenReportCount)

	// Linear in report volume, saturating at 125 reports.
	citizenEvidence := math.Min(100, float64(in.CitizenReportCount)*0.8)

	finalScore := math.Round(
		progressAccuracy*WeightProgressAccuracy +
			transparencyScore*WeightTransparency +
			citizenEvidence*WeightCitizenEvidence +
			delayRiskWeight*WeightDelayRisk)

	return &ScoreBreakdown{
		ProgressAccuracy:  progressAccuracy,
		TransparencyScore: transparencyScore,
		CitizenEvidence:   citizenEvidence,
		DelayRiskWeight:   delayRiskWeight,
		FinalScore:        int(finalScore),
	}, nil
}

var delayRiskWeights = map[DelayRisk]float64{
	DelayRiskLow:    90,
	DelayRiskMedium: 60,
	DelayRiskHigh:   30,
}

// transparencyStep maps report volume onto a deliberately coarse step
// function: report volume is a weak, saturating proxy for transparency,
// not a linear one.
func transparencyStep(reportCount int) float64 {
	switch {
	case reportCount > 50:
		return 75
	case reportCount > 20:
		return 60
	default:
		return 40
	}
}
