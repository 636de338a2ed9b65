package oracle

import (
	"errors"
	"fmt"
)

// Oracle failure kinds. Rate limiting and quota exhaustion are surfaced to
// callers as distinct errors so the HTTP layer can map them to 429/402, but
// both satisfy errors.Is(err, ErrUnavailable) — the core treats every oracle
// failure the same way and falls back conservatively.
var (
	ErrUnavailable    = errors.New("oracle unavailable")
	ErrRateLimited    = fmt.Errorf("%w: rate limit exceeded", ErrUnavailable)
	ErrQuotaExhausted = fmt.Errorf("%w: ai credits exhausted", ErrUnavailable)
)

// LivenessRequest is the request shape of the face liveness oracle.
type LivenessRequest struct {
	FaceImageBase64    string `json:"faceImageBase64"`
	ProfileImageBase64 string `json:"profileImageBase64,omitempty"`
}

// LivenessResult is the structured judgment returned by the liveness oracle.
// It is ephemeral: produced once per verification attempt and never persisted.
type LivenessResult struct {
	IsLive       bool    `json:"isLive"`
	FaceDetected bool    `json:"faceDetected"`
	QualityGood  bool    `json:"qualityGood"`
	IdentityMatch bool   `json:"identityMatch"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// FallbackLivenessResult is the conservative judgment used when the oracle
// fails or returns a malformed response: every flag false, zero confidence.
func FallbackLivenessResult() LivenessResult {
	return LivenessResult{
		IsLive:        false,
		FaceDetected:  false,
		QualityGood:   false,
		IdentityMatch: false,
		Confidence:    0,
		Reason:        "Verification inconclusive",
	}
}

// AnalysisRequest is the request shape of the report-analysis oracle.
type AnalysisRequest struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	ProjectName string `json:"projectName"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// ReportAnalysis is the structured judgment returned by the report-analysis
// oracle. One analysis is attached permanently to its report at creation.
type ReportAnalysis struct {
	CredibilityScore float64  `json:"credibilityScore"`
	Analysis         string   `json:"analysis"`
	ShouldFlag       bool     `json:"shouldFlag"`
	Findings         []string `json:"findings"`
}

// FallbackReportAnalysis is the conservative judgment used when the oracle
// fails: a neutral score, flagged for manual review. A failed oracle call
// must never produce a confident score or a silently dropped report.
func FallbackReportAnalysis() ReportAnalysis {
	return ReportAnalysis{
		CredibilityScore: 50,
		Analysis:         "Unable to fully analyze. Manual review recommended.",
		ShouldFlag:       true,
		Findings:         []string{"AI analysis incomplete"},
	}
}
