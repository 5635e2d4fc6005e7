package detect

import "math"

// RackUnitEstimator maps a region's vertical pixel position to a rack
// unit. The accuracy of this mapping is explicitly approximate; it is an
// interface so deployments with calibrated cameras can substitute their
// own projection.
type RackUnitEstimator interface {
	EstimateRU(y, imageHeight int) int
}

// LinearRackUnits assumes the rack occupies the full image height with
// unit 0 at the top and projects linearly across TotalUnits.
type LinearRackUnits struct {
	TotalUnits int
}

// EstimateRU returns floor((y / imageHeight) * TotalUnits).
func (l LinearRackUnits) EstimateRU(y, imageHeight int) int {
	if imageHeight <= 0 {
		return 0
	}
	return int(math.Floor(float64(y) / float64(imageHeight) * float64(l.TotalUnits)))
}

// TypeClassifier decides a change type from the mean pixel intensity of
// the region in the before and after images.
type TypeClassifier interface {
	Classify(beforeMean, afterMean float64) ChangeType
}

// IntensityRatioClassifier implements the "something bright appeared or
// disappeared" heuristic: a mean brighter than Ratio times the other
// side's mean indicates an addition or removal.
type IntensityRatioClassifier struct {
	Ratio float64
}

// Classify returns Addition when the after mean dominates, Removal when
// the before mean dominates, and Modification otherwise.
func (c IntensityRatioClassifier) Classify(beforeMean, afterMean float64) ChangeType {
	switch {
	case afterMean > beforeMean*c.Ratio:
		return Addition
	case beforeMean > afterMean*c.Ratio:
		return Removal
	default:
		return Modification
	}
}

// Confidence scores a region against a baseline of 1% of the image area,
// scaled by the global dissimilarity (1 - score). The result is clamped
// to [0, 1] and degenerate inputs yield 0 rather than NaN.
func Confidence(area, imageArea int, score float64) float64 {
	if area <= 0 || imageArea <= 0 {
		return 0
	}

	baseline := float64(imageArea) * 0.01
	c := (float64(area) / baseline) * (1 - score)
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
