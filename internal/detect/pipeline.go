package detect

import (
	"fmt"
	"strings"
	"time"

	"rackdiff/internal/imaging"
	"rackdiff/internal/ssim"
	"rackdiff/pkg/geometry"
)

// TextAnnotator extracts text (asset tags, serials) from a change region.
// It is a best-effort side channel: errors are swallowed by the pipeline
// and never affect classification.
type TextAnnotator interface {
	ExtractText(before, after *imaging.Grayscale, region geometry.RectInt) (string, error)
}

// Options configures the detection pipeline.
type Options struct {
	MinContourArea int     // Minimum contour area to consider as a change
	MaxDimension   int     // Longer-edge bound applied before comparison
	TotalRackUnits int     // Rack units for the linear projection
	IntensityRatio float64 // Mean-intensity ratio for change typing
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		MinContourArea: 100,
		MaxDimension:   1920,
		TotalRackUnits: 42,
		IntensityRatio: 1.2,
	}
}

// Detector runs the change-detection pipeline. It holds configuration
// only; every Compare call returns its own immutable result, so one
// Detector is safe to share across concurrent comparisons.
type Detector struct {
	opts      Options
	rackUnits RackUnitEstimator
	typer     TypeClassifier
	annotator TextAnnotator
}

// New creates a Detector with the default rack-unit projection and
// intensity-ratio type classifier.
func New(opts Options) *Detector {
	return &Detector{
		opts:      opts,
		rackUnits: LinearRackUnits{TotalUnits: opts.TotalRackUnits},
		typer:     IntensityRatioClassifier{Ratio: opts.IntensityRatio},
	}
}

// SetRackUnitEstimator replaces the rack-unit projection strategy.
func (d *Detector) SetRackUnitEstimator(e RackUnitEstimator) {
	d.rackUnits = e
}

// SetTypeClassifier replaces the change-type strategy.
func (d *Detector) SetTypeClassifier(c TypeClassifier) {
	d.typer = c
}

// SetAnnotator attaches an optional OCR annotator. A nil annotator
// disables text extraction.
func (d *Detector) SetAnnotator(a TextAnnotator) {
	d.annotator = a
}

// Comparison bundles the persistent ChangeSet with the transient image
// buffers a caller may want for rendering artifacts. The detector does
// not retain the buffers after Compare returns.
type Comparison struct {
	Set     *ChangeSet
	Before  *imaging.Grayscale
	After   *imaging.Grayscale
	DiffMap *imaging.Grayscale
}

// Compare runs the full pipeline on a pair of encoded images and returns
// the classified changes for the session. Fatal errors are wrapped with
// the failing stage and session so the caller can log and respond.
func (d *Detector) Compare(sessionID string, beforeData, afterData []byte) (*Comparison, error) {
	pair, err := imaging.NormalizePair(beforeData, afterData, d.opts.MaxDimension)
	if err != nil {
		return nil, fmt.Errorf("normalize: session %s: %w", sessionID, err)
	}

	result, err := ssim.Compare(pair.Before, pair.After)
	if err != nil {
		return nil, fmt.Errorf("similarity: session %s: %w", sessionID, err)
	}

	regions, err := ExtractRegions(result.DiffMap, d.opts.MinContourArea)
	if err != nil {
		return nil, fmt.Errorf("regions: session %s: %w", sessionID, err)
	}

	changes := d.classify(pair, result.Score, regions)

	set := &ChangeSet{
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
		Score:     result.Score,
		Changes:   changes,
	}

	return &Comparison{
		Set:     set,
		Before:  pair.Before,
		After:   pair.After,
		DiffMap: result.DiffMap,
	}, nil
}

// classify turns extracted regions into typed, scored changes. Malformed
// or zero-area regions are skipped, not propagated as errors.
func (d *Detector) classify(pair *imaging.Pair, score float64, regions []ChangeRegion) []Change {
	changes := make([]Change, 0, len(regions))

	for _, region := range regions {
		if region.Bounds.Empty() || region.Area <= 0 {
			continue
		}

		beforeMean := pair.Before.MeanRect(region.Bounds)
		afterMean := pair.After.MeanRect(region.Bounds)

		change := Change{
			ID:          region.ID,
			Type:        d.typer.Classify(beforeMean, afterMean),
			Region:      region,
			Confidence:  Confidence(region.Area, pair.Before.Area(), score),
			EstimatedRU: d.rackUnits.EstimateRU(region.Bounds.Y, pair.Before.Height),
		}

		if d.annotator != nil {
			if text, err := d.annotator.ExtractText(pair.Before, pair.After, region.Bounds); err == nil {
				change.ExtractedText = strings.TrimSpace(text)
			}
		}

		changes = append(changes, change)
	}

	return changes
}
