package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

func TestFromCounts(t *testing.T) {
	agg, err := FromCounts(100, 85, 50000, 120.5)
	require.NoError(t, err)

	assert.Equal(t, 100, agg.SampleCount)
	assert.Equal(t, 85, agg.SuccessCount)
	assert.Equal(t, 15, agg.FailureCount)
	assert.InDelta(t, 0.85, agg.SuccessRate, 1e-9)
	assert.Equal(t, int64(50000), agg.TotalTokens)
	assert.InDelta(t, 500.0, agg.AvgTokensPerSample(), 1e-9)
	assert.Equal(t, 121, agg.MeanLatencyRounded())
}

func TestFromCountsZeroTotal(t *testing.T) {
	agg, err := FromCounts(0, 0, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 0.0, agg.SuccessRate)
	assert.Equal(t, 0.0, agg.AvgTokensPerSample())
	assert.Equal(t, 0, agg.FailureCount)
}

func TestFromCountsInvariants(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		success int
		tokens  int64
		latency float64
	}{
		{"negative total", -1, 0, 0, 0},
		{"negative success", 10, -1, 0, 0},
		{"success exceeds total", 10, 11, 0, 0},
		{"negative tokens", 10, 5, -100, 0},
		{"negative latency", 10, 5, 100, -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromCounts(tt.total, tt.success, tt.tokens, tt.latency)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.InvalidInput))
		})
	}
}

func TestFromCountsRateAlwaysInRange(t *testing.T) {
	for total := 0; total <= 20; total++ {
		for success := 0; success <= total; success++ {
			agg, err := FromCounts(total, success, 0, 0)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, agg.SuccessRate, 0.0)
			assert.LessOrEqual(t, agg.SuccessRate, 1.0)
			assert.Equal(t, total, agg.SuccessCount+agg.FailureCount)
		}
	}
}

func TestConfidenceInterval(t *testing.T) {
	ci, err := ConfidenceInterval(0.85, 100)
	require.NoError(t, err)

	se := math.Sqrt(0.85 * 0.15 / 100)
	assert.InDelta(t, 0.85-1.96*se, ci.Lower, 1e-9)
	assert.InDelta(t, 0.85+1.96*se, ci.Upper, 1e-9)
}

func TestConfidenceIntervalClamping(t *testing.T) {
	ci, err := ConfidenceInterval(1.0, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ci.Upper)
	assert.Equal(t, 1.0, ci.Lower)

	ci, err = ConfidenceInterval(0.0, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ci.Lower)
	assert.Equal(t, 0.0, ci.Upper)

	// Small n blows the margin past the bounds; it must clamp.
	ci, err = ConfidenceInterval(0.5, 2)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ci.Lower, 0.0)
	assert.LessOrEqual(t, ci.Upper, 1.0)
}

func TestConfidenceIntervalRejectsBadInput(t *testing.T) {
	_, err := ConfidenceInterval(0.5, 0)
	assert.Error(t, err)

	_, err = ConfidenceInterval(1.5, 10)
	assert.Error(t, err)

	_, err = ConfidenceInterval(-0.1, 10)
	assert.Error(t, err)
}

func TestMinimumAcceptableRate(t *testing.T) {
	rate, err := MinimumAcceptableRate(0.85, 100)
	require.NoError(t, err)

	se := math.Sqrt(0.85 * 0.15 / 100)
	expected := math.Round((0.85-1.96*se)*10000) / 10000
	assert.Equal(t, expected, rate)

	// Rounded to 4 decimal places.
	assert.Equal(t, rate, math.Round(rate*10000)/10000)
}
