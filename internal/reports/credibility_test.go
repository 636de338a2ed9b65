package reports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiclens/portal-backend/internal/oracle"
)

func passingLiveness() oracle.LivenessResult {
	return oracle.LivenessResult{
		IsLive:       true,
		FaceDetected: true,
		QualityGood:  true,
		Confidence:   85,
	}
}

func TestCheckLivenessGatePasses(t *testing.T) {
	assert.NoError(t, CheckLivenessGate(passingLiveness()))
}

func TestCheckLivenessGateConfidenceBoundary(t *testing.T) {
	result := passingLiveness()

	result.Confidence = 60
	assert.NoError(t, CheckLivenessGate(result), "confidence exactly at the threshold passes")

	result.Confidence = 59
	err := CheckLivenessGate(result)
	require.Error(t, err)
	assert.True(t, IsGateFailure(err))
}

func TestCheckLivenessGateRequiresEveryFlag(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*oracle.LivenessResult)
	}{
		{"not live", func(r *oracle.LivenessResult) { r.IsLive = false }},
		{"no face", func(r *oracle.LivenessResult) { r.FaceDetected = false }},
		{"bad quality", func(r *oracle.LivenessResult) { r.QualityGood = false }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := passingLiveness()
			result.Confidence = 100
			tc.mutate(&result)

			err := CheckLivenessGate(result)
			require.Error(t, err, "high confidence cannot compensate for a failed flag")
			assert.True(t, IsGateFailure(err))
		})
	}
}

func TestCheckLivenessGateFallbackNeverPasses(t *testing.T) {
	err := CheckLivenessGate(oracle.FallbackLivenessResult())
	require.Error(t, err)
	assert.True(t, IsGateFailure(err))
}

func TestGateErrorUnwrapsOracleFailure(t *testing.T) {
	cause := oracle.ErrRateLimited
	err := &GateError{Reason: "liveness not confirmed", Err: cause}

	assert.True(t, errors.Is(err, oracle.ErrRateLimited))
	assert.True(t, errors.Is(err, oracle.ErrUnavailable))
}

func TestAggregateCredibilityHealthyOracle(t *testing.T) {
	signal := AggregateCredibility(&oracle.ReportAnalysis{
		CredibilityScore: 82,
		Analysis:         "Consistent with reported progress.",
		ShouldFlag:       false,
		Findings:         []string{"photo matches site"},
	}, nil)

	assert.Equal(t, 82.0, signal.CredibilityScore)
	assert.Equal(t, StatusPending, signal.InitialStatus)
	assert.False(t, signal.OracleDegraded)
}

func TestAggregateCredibilityFlaggedByOracle(t *testing.T) {
	signal := AggregateCredibility(&oracle.ReportAnalysis{
		CredibilityScore: 30,
		Analysis:         "Claims conflict with official records.",
		ShouldFlag:       true,
	}, nil)

	assert.Equal(t, StatusFlagged, signal.InitialStatus)
	assert.False(t, signal.OracleDegraded)
}

func TestAggregateCredibilityFallbackOnError(t *testing.T) {
	signal := AggregateCredibility(nil, oracle.ErrUnavailable)

	assert.Equal(t, 50.0, signal.CredibilityScore)
	assert.Equal(t, "Unable to fully analyze. Manual review recommended.", signal.Analysis)
	assert.Equal(t, []string{"AI analysis incomplete"}, signal.Findings)
	assert.True(t, signal.ShouldFlag)
	assert.Equal(t, StatusFlagged, signal.InitialStatus)
	assert.True(t, signal.OracleDegraded)
}

func TestAggregateCredibilityFallbackOnNilAnalysis(t *testing.T) {
	signal := AggregateCredibility(nil, nil)

	assert.Equal(t, 50.0, signal.CredibilityScore)
	assert.Equal(t, StatusFlagged, signal.InitialStatus)
	assert.True(t, signal.OracleDegraded)
}
