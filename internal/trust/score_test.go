package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiclens/portal-backend/pkg/validate"
)

func TestComputeTrustScore(t *testing.T) {
	tests := []struct {
		name  string
		input ScoreInput
		want  ScoreBreakdown
	}{
		{
			name: "high divergence high risk heavy reporting",
			// Mirrors the Miraj Junction modernization numbers.
			input: ScoreInput{OfficialCompletion: 55, AIEstimatedCompletion: 35, CitizenReportCount: 203, DelayRisk: DelayRiskHigh},
			want: ScoreBreakdown{
				ProgressAccuracy:  60,
				TransparencyScore: 75,
				CitizenEvidence:   100, // saturated
				DelayRiskWeight:   30,
				FinalScore:        69, // round(24 + 15 + 25 + 4.5)
			},
		},
		{
			name:  "perfect agreement low risk",
			input: ScoreInput{OfficialCompletion: 80, AIEstimatedCompletion: 80, CitizenReportCount: 10, DelayRisk: DelayRiskLow},
			want: ScoreBreakdown{
				ProgressAccuracy:  100,
				TransparencyScore: 40,
				CitizenEvidence:   8,
				DelayRiskWeight:   90,
				FinalScore:        64, // round(40 + 8 + 2 + 13.5)
			},
		},
		{
			name:  "divergence of fifty zeroes progress accuracy",
			input: ScoreInput{OfficialCompletion: 90, AIEstimatedCompletion: 40, CitizenReportCount: 25, DelayRisk: DelayRiskMedium},
			want: ScoreBreakdown{
				ProgressAccuracy:  0,
				TransparencyScore: 60,
				CitizenEvidence:   20,
				DelayRiskWeight:   60,
				FinalScore:        26, // round(0 + 12 + 5 + 9)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeTrustScore(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestComputeTrustScoreDeterministic(t *testing.T) {
	in := ScoreInput{OfficialCompletion: 78, AIEstimatedCompletion: 52, CitizenReportCount: 156, DelayRisk: DelayRiskHigh}

	first, err := ComputeTrustScore(in)
	require.NoError(t, err)
	second, err := ComputeTrustScore(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.FinalScore, 0)
	assert.LessOrEqual(t, first.FinalScore, 100)
}

func TestComputeTrustScoreBounds(t *testing.T) {
	// Final score stays inside [0,100] across the corners of the input space.
	for _, official := range []int{0, 50, 100} {
		for _, ai := range []int{0, 50, 100} {
			for _, count := range []int{0, 21, 51, 125, 500} {
				for _, risk := range []DelayRisk{DelayRiskLow, DelayRiskMedium, DelayRiskHigh} {
					got, err := ComputeTrustScore(ScoreInput{
						OfficialCompletion:    official,
						AIEstimatedCompletion: ai,
						CitizenReportCount:    count,
						DelayRisk:             risk,
					})
					require.NoError(t, err)
					assert.GreaterOrEqual(t, got.FinalScore, 0)
					assert.LessOrEqual(t, got.FinalScore, 100)
				}
			}
		}
	}
}

func TestComputeTrustScoreProgressAccuracyEdges(t *testing.T) {
	equal, err := ComputeTrustScore(ScoreInput{OfficialCompletion: 42, AIEstimatedCompletion: 42, DelayRisk: DelayRiskLow})
	require.NoError(t, err)
	assert.Equal(t, 100.0, equal.ProgressAccuracy)

	wide, err := ComputeTrustScore(ScoreInput{OfficialCompletion: 100, AIEstimatedCompletion: 30, DelayRisk: DelayRiskLow})
	require.NoError(t, err)
	assert.Equal(t, 0.0, wide.ProgressAccuracy)
}

func TestComputeTrustScoreRejectsInvalidInput(t *testing.T) {
	cases := []ScoreInput{
		{OfficialCompletion: 101, AIEstimatedCompletion: 50, DelayRisk: DelayRiskLow},
		{OfficialCompletion: 50, AIEstimatedCompletion: -1, DelayRisk: DelayRiskLow},
		{OfficialCompletion: 50, AIEstimatedCompletion: 50, CitizenReportCount: -3, DelayRisk: DelayRiskLow},
		{OfficialCompletion: 50, AIEstimatedCompletion: 50, DelayRisk: "Severe"},
	}

	for _, in := range cases {
		_, err := ComputeTrustScore(in)
		require.Error(t, err)
		assert.True(t, validate.IsValidationError(err))
	}
}

func TestWeightSumInvariant(t *testing.T) {
	sum := WeightProgressAccuracy + WeightTransparency + WeightCitizenEvidence + WeightDelayRisk
	assert.Equal(t, 1.0, sum)
}

func TestTransparencyStepBoundaries(t *testing.T) {
	assert.Equal(t, 40.0, transparencyStep(0))
	assert.Equal(t, 40.0, transparencyStep(20))
	assert.Equal(t, 60.0, transparencyStep(21))
	assert.Equal(t, 60.0, transparencyStep(50))
	assert.Equal(t, 75.0, transparencyStep(51))
}
