// Package inventory defines the asset-inventory domain model and the
// store contract the reconciliation engine writes through.
package inventory

import (
	"context"
	"errors"
	"time"

	"rackdiff/internal/detect"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("inventory: not found")

// Asset statuses as recorded in the inventory.
const (
	StatusActive         = "Active"
	StatusDecommissioned = "Decommissioned"
	StatusMaintenance    = "Maintenance"
)

// Rack is a physical server rack tracked by the inventory.
type Rack struct {
	RackID      string    `json:"rack_id"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	TotalRU     int       `json:"total_ru"`
	LastUpdated time.Time `json:"last_updated"`
}

// Asset is a piece of hardware registered at a rack-unit range.
type Asset struct {
	AssetID          string    `json:"asset_id"`
	RackID           string    `json:"rack_id"`
	RUPosition       int       `json:"ru_position"`
	RUSize           int       `json:"ru_size"`
	AssetType        string    `json:"asset_type"`
	Model            string    `json:"model"`
	SerialNumber     string    `json:"serial_number"`
	Status           string    `json:"status"`
	InstallationDate time.Time `json:"installation_date"`
	LastUpdated      time.Time `json:"last_updated"`
}

// ContainsRU reports whether the asset's rack-unit range covers ru.
func (a Asset) ContainsRU(ru int) bool {
	return ru >= a.RUPosition && ru <= a.RUPosition+a.RUSize-1
}

// AssetUpdate enumerates the mutable asset fields. Only non-nil fields
// are applied; arbitrary column updates are deliberately not supported.
type AssetUpdate struct {
	RUPosition   *int
	RUSize       *int
	AssetType    *string
	Model        *string
	SerialNumber *string
	Status       *string
}

// IsZero reports whether the update would change nothing.
func (u AssetUpdate) IsZero() bool {
	return u.RUPosition == nil && u.RUSize == nil && u.AssetType == nil &&
		u.Model == nil && u.SerialNumber == nil && u.Status == nil
}

// Severity ranks how urgently a discrepancy needs attention.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// DiscrepancyType is the fixed taxonomy of inventory mismatches.
type DiscrepancyType string

const (
	UnregisteredAddition     DiscrepancyType = "Unregistered Addition"
	StatusDiscrepancy        DiscrepancyType = "Status Discrepancy"
	UnregisteredRemoval      DiscrepancyType = "Unregistered Removal"
	UnregisteredModification DiscrepancyType = "Unregistered Modification"
	ConfigurationDiscrepancy DiscrepancyType = "Configuration Discrepancy"
)

// DiscrepancyStatus tracks resolution. The only defined transition is
// Open -> Resolved, exactly once.
type DiscrepancyStatus string

const (
	StatusOpen     DiscrepancyStatus = "Open"
	StatusResolved DiscrepancyStatus = "Resolved"
)

// Discrepancy records a mismatch between a detected change and the
// inventory, with a snapshot of the matched asset at reconciliation time.
// Later inventory edits never alter a stored discrepancy.
type Discrepancy struct {
	ID                string            `json:"discrepancy_id"`
	SessionID         string            `json:"session_id"`
	ChangeID          int               `json:"change_id"`
	Type              DiscrepancyType   `json:"type"`
	Description       string            `json:"description"`
	RackID            string            `json:"rack_id"`
	RUPosition        int               `json:"ru_position"`
	Confidence        float64           `json:"confidence"`
	Severity          Severity          `json:"severity"`
	Status            DiscrepancyStatus `json:"status"`
	RecommendedAction string            `json:"recommended_action"`
	Asset             *Asset            `json:"asset,omitempty"`
	Change            detect.Change     `json:"change"`
	CreatedAt         time.Time         `json:"created_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy        string            `json:"resolved_by,omitempty"`
	ResolutionNotes   string            `json:"resolution_notes,omitempty"`
}

// Utilization summarizes how full a rack is.
type Utilization struct {
	RackID         string  `json:"rack_id"`
	TotalRU        int     `json:"total_ru"`
	UsedRU         int     `json:"used_ru"`
	AvailableRU    int     `json:"available_ru"`
	UtilizationPct float64 `json:"utilization_percentage"`
	AssetCount     int     `json:"asset_count"`
}

// Store is the full inventory contract. The reconciliation engine only
// depends on a narrow subset of it (see package reconcile).
type Store interface {
	AddRack(ctx context.Context, rack Rack) error
	Racks(ctx context.Context) ([]Rack, error)
	Rack(ctx context.Context, rackID string) (*Rack, error)
	RackUtilization(ctx context.Context, rackID string) (*Utilization, error)

	AddAsset(ctx context.Context, asset Asset) error
	RemoveAsset(ctx context.Context, assetID string) error
	UpdateAsset(ctx context.Context, assetID string, update AssetUpdate) error
	AssetByID(ctx context.Context, assetID string) (*Asset, error)
	AssetBySerial(ctx context.Context, serial string) (*Asset, error)
	AssetsForRack(ctx context.Context, rackID string) ([]Asset, error)
	// AssetAtPosition returns the asset whose rack-unit range contains
	// ru, or (nil, nil) when the position is unoccupied.
	AssetAtPosition(ctx context.Context, rackID string, ru int) (*Asset, error)

	// RecordDiscrepancy persists a discrepancy, upserting on the
	// (session, change) pair so reconciliation can be re-run safely.
	RecordDiscrepancy(ctx context.Context, d *Discrepancy) (string, error)
	Discrepancy(ctx context.Context, id string) (*Discrepancy, error)
	DiscrepanciesBySession(ctx context.Context, sessionID string) ([]Discrepancy, error)
	// MarkResolved transitions a discrepancy Open -> Resolved. It
	// returns false when the discrepancy is missing or already resolved.
	MarkResolved(ctx context.Context, id, resolvedBy, notes string) (bool, error)
}
