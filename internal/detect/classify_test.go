package detect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntensityRatioClassifier(t *testing.T) {
	c := IntensityRatioClassifier{Ratio: 1.2}

	tests := []struct {
		name       string
		beforeMean float64
		afterMean  float64
		want       ChangeType
	}{
		{"bright appeared", 50, 120, Addition},
		{"bright disappeared", 120, 50, Removal},
		{"similar brightness", 100, 110, Modification},
		{"exactly at ratio is not addition", 100, 120, Modification},
		{"just above ratio", 100, 120.1, Addition},
		{"dark before, anything after", 0, 1, Addition},
		{"both zero", 0, 0, Modification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.beforeMean, tt.afterMean))
		})
	}
}

func TestLinearRackUnits(t *testing.T) {
	l := LinearRackUnits{TotalUnits: 42}

	assert.Equal(t, 0, l.EstimateRU(0, 1000))
	assert.Equal(t, 4, l.EstimateRU(100, 1000))
	assert.Equal(t, 21, l.EstimateRU(500, 1000))
	assert.Equal(t, 41, l.EstimateRU(999, 1000))
	// Degenerate image height
	assert.Equal(t, 0, l.EstimateRU(100, 0))
}

func TestConfidenceClamped(t *testing.T) {
	// Large region with a dissimilar score saturates at 1
	assert.Equal(t, 1.0, Confidence(50000, 100000, 0.0))

	// Small region with a near-identical score is near 0
	c := Confidence(100, 1000000, 0.999)
	assert.Greater(t, c, 0.0)
	assert.Less(t, c, 0.001)

	for _, score := range []float64{0, 0.25, 0.5, 0.9, 1.0} {
		c := Confidence(2500, 1000000, score)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
		assert.False(t, math.IsNaN(c))
	}
}

func TestConfidenceDegenerateInputs(t *testing.T) {
	// Zero image area must not divide by zero
	assert.Equal(t, 0.0, Confidence(100, 0, 0.5))
	assert.Equal(t, 0.0, Confidence(0, 1000, 0.5))
	assert.Equal(t, 0.0, Confidence(-5, 1000, 0.5))
	assert.False(t, math.IsNaN(Confidence(100, 0, math.NaN())))
}

// The confidence formula deliberately uses the global similarity score for
// every region rather than a per-region local score; this pins that
// behavior so it is not "fixed" by accident.
func TestConfidenceUsesGlobalScore(t *testing.T) {
	area, imageArea := 5000, 1000000

	global := Confidence(area, imageArea, 0.4)
	lessDissimilar := Confidence(area, imageArea, 0.8)

	assert.InDelta(t, (5000.0/10000.0)*0.6, global, 1e-9)
	assert.InDelta(t, (5000.0/10000.0)*0.2, lessDissimilar, 1e-9)
	assert.Greater(t, global, lessDissimilar)
}
