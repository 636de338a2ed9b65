package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDiscrepancy(t *testing.T) {
	tests := []struct {
		name                string
		official, ai, threshold int
		wantGap             int
		wantFlagged         bool
	}{
		{"gap above dashboard threshold", 78, 52, 20, 26, true},
		{"small gap not flagged", 65, 60, 20, 5, false},
		{"gap equal to threshold not flagged", 70, 50, 20, 20, false},
		{"ai estimate above official", 40, 60, 15, 20, true},
		{"surfacing threshold catches smaller gap", 60, 44, 15, 16, true},
		{"no gap", 55, 55, 15, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectDiscrepancy(tt.official, tt.ai, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.wantGap, got.Gap)
			assert.Equal(t, tt.wantFlagged, got.Flagged)
		})
	}
}

func TestDetectDiscrepancyRejectsInvalidInput(t *testing.T) {
	_, err := DetectDiscrepancy(101, 50, 20)
	assert.Error(t, err)

	_, err = DetectDiscrepancy(50, -2, 20)
	assert.Error(t, err)

	_, err = DetectDiscrepancy(50, 50, -1)
	assert.Error(t, err)
}
