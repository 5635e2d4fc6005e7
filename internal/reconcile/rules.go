// Package reconcile maps detected changes against the registered
// inventory and records the mismatches as discrepancies.
package reconcile

import (
	"fmt"

	"rackdiff/internal/detect"
	"rackdiff/internal/inventory"
)

// Outcome is one row of the decision table: what kind of discrepancy a
// (change, asset) pair produces and how urgent it is.
type Outcome struct {
	Type              inventory.DiscrepancyType
	Severity          inventory.Severity
	Description       string
	RecommendedAction string
}

// Evaluate applies the decision table to a change and the asset (if any)
// registered at the change's estimated rack unit. It returns false when
// the observed state agrees with the inventory and no discrepancy is
// warranted. The mapping is pure: same inputs, same outcome.
func Evaluate(change detect.Change, asset *inventory.Asset) (Outcome, bool) {
	switch change.Type {
	case detect.Addition:
		if asset == nil {
			return Outcome{
				Type:              inventory.UnregisteredAddition,
				Severity:          inventory.SeverityHigh,
				Description:       fmt.Sprintf("Hardware detected at RU %d but no asset is registered there", change.EstimatedRU),
				RecommendedAction: "Register new hardware",
			}, true
		}
		if asset.Status != inventory.StatusActive {
			return Outcome{
				Type:              inventory.StatusDiscrepancy,
				Severity:          inventory.SeverityMedium,
				Description:       fmt.Sprintf("Hardware detected at RU %d but asset %s is marked %s", change.EstimatedRU, asset.AssetID, asset.Status),
				RecommendedAction: "Update status to Active",
			}, true
		}
		// Active asset at an addition site: inventory already agrees.
		return Outcome{}, false

	case detect.Removal:
		if asset == nil {
			return Outcome{}, false
		}
		return Outcome{
			Type:              inventory.UnregisteredRemoval,
			Severity:          inventory.SeverityHigh,
			Description:       fmt.Sprintf("Hardware removed at RU %d but asset %s is still registered", change.EstimatedRU, asset.AssetID),
			RecommendedAction: "Update inventory to reflect removal",
		}, true

	case detect.Modification:
		if asset == nil {
			return Outcome{
				Type:              inventory.UnregisteredModification,
				Severity:          inventory.SeverityMedium,
				Description:       fmt.Sprintf("Hardware modified at RU %d but no asset is registered there", change.EstimatedRU),
				RecommendedAction: "Investigate and update inventory",
			}, true
		}
		return Outcome{
			Type:              inventory.ConfigurationDiscrepancy,
			Severity:          inventory.SeverityLow,
			Description:       fmt.Sprintf("Hardware at RU %d (asset %s) appears modified", change.EstimatedRU, asset.AssetID),
			RecommendedAction: "Verify configuration and update if needed",
		}, true
	}
	return Outcome{}, false
}
