// Package detect implements the change-detection pipeline: region
// extraction from a dissimilarity map and classification of each region
// into a typed, confidence-scored change.
package detect

import (
	"time"

	"rackdiff/pkg/geometry"
)

// ChangeType classifies what happened to the hardware inside a region.
type ChangeType string

const (
	Addition     ChangeType = "Addition"
	Removal      ChangeType = "Removal"
	Modification ChangeType = "Modification"
)

// ChangeRegion is a connected area of the dissimilarity map that passed
// the minimum-area filter. Bounds are always clipped to the image extent.
type ChangeRegion struct {
	ID     int               `json:"id"`
	Bounds geometry.RectInt  `json:"bounds"`
	Area   int               `json:"area"`
	Center geometry.PointInt `json:"center"`
}

// Change is one classified change between the before and after images.
// It is immutable once created.
type Change struct {
	ID            int          `json:"id"`
	Type          ChangeType   `json:"type"`
	Region        ChangeRegion `json:"region"`
	Confidence    float64      `json:"confidence"`
	EstimatedRU   int          `json:"estimated_ru"`
	ExtractedText string       `json:"extracted_text,omitempty"`
}

// ChangeSet is the ordered result of one comparison run, tagged with the
// session it belongs to. Immutable once persisted.
type ChangeSet struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"ssim_score"`
	Changes   []Change  `json:"changes"`
}
