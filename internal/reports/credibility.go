package reports

import (
	"errors"
	"fmt"

	"civiclens/portal-backend/internal/oracle"
)

// MinLivenessConfidence is the lowest oracle confidence the liveness gate
// accepts. 60 exactly passes; 59 fails regardless of the other flags.
const MinLivenessConfidence = 60

// GateError means the liveness gate refused to open. This is an expected
// outcome, not a system fault: the citizen retries the capture.
type GateError struct {
	Reason string
	Err    error
}

func (e *GateError) Error() string {
	return fmt.Sprintf("liveness gate failed: %s", e.Reason)
}

func (e *GateError) Unwrap() error { return e.Err }

// IsGateFailure reports whether err is (or wraps) a liveness gate failure
func IsGateFailure(err error) bool {
	var ge *GateError
	return errors.As(err, &ge)
}

// CheckLivenessGate enforces the precondition for report creation: the
// selfie must be live, contain a detected face of usable quality, and carry
// at least MinLivenessConfidence. Failing the gate happens before the
// report-analysis oracle is ever invoked.
func CheckLivenessGate(result oracle.LivenessResult) error {
	switch {
	case !result.IsLive:
		return &GateError{Reason: gateReason(result, "liveness not confirmed")}
	case !result.FaceDetected:
		return &GateError{Reason: gateReason(result, "no clear face detected")}
	case !result.QualityGood:
		return &GateError{Reason: gateReason(result, "image quality too low")}
	case result.Confidence < MinLivenessConfidence:
		return &GateError{Reason: fmt.Sprintf("confidence %.0f below required %d", result.Confidence, MinLivenessConfidence)}
	}
	return nil
}

func gateReason(result oracle.LivenessResult, fallback string) string {
	if result.Reason != "" {
		return result.Reason
	}
	return fallback
}

// CredibilitySignal is the moderation-ready outcome of combining the
// report-analysis oracle output with the gate result: a stored credibility
// score, the analysis text, and the report's initial persisted status.
type CredibilitySignal struct {
	CredibilityScore float64  `json:"credibility_score"`
	Analysis         string   `json:"analysis"`
	Findings         []string `json:"findings"`
	ShouldFlag       bool     `json:"should_flag"`
	InitialStatus    Status   `json:"initial_status"`
	OracleDegraded   bool     `json:"oracle_degraded"`
}

// AggregateCredibility derives the initial status for a gated report. When
// the analysis oracle failed or returned nothing, the conservative fallback
// applies: credibility 50, flagged for manual review. The report is never
// dropped and never given a confident score on oracle failure.
func AggregateCredibility(analysis *oracle.ReportAnalysis, analysisErr error) CredibilitySignal {
	if analysisErr != nil || analysis == nil {
		fallback := oracle.FallbackReportAnalysis()
		return CredibilitySignal{
			CredibilityScore: fallback.CredibilityScore,
			Analysis:         fallback.Analysis,
			Findings:         fallback.Findings,
			ShouldFlag:       true,
			InitialStatus:    StatusFlagged,
			OracleDegraded:   true,
		}
	}

	status := StatusPending
	if analysis.ShouldFlag {
		status = StatusFlagged
	}

	return CredibilitySignal{
		CredibilityScore: analysis.CredibilityScore,
		Analysis:         analysis.Analysis,
		Findings:         analysis.Findings,
		ShouldFlag:       analysis.ShouldFlag,
		InitialStatus:    status,
	}
}
