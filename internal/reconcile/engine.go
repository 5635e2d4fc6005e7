package reconcile

import (
	"context"
	"fmt"

	"rackdiff/internal/detect"
	"rackdiff/internal/inventory"
	"rackdiff/internal/logging"
)

// Inventory is the narrow slice of the store the engine needs.
type Inventory interface {
	AssetAtPosition(ctx context.Context, rackID string, ru int) (*inventory.Asset, error)
	RecordDiscrepancy(ctx context.Context, d *inventory.Discrepancy) (string, error)
}

// Engine reconciles detected change sets against the inventory.
type Engine struct {
	store Inventory
}

// New creates a reconciliation engine backed by store.
func New(store Inventory) *Engine {
	return &Engine{store: store}
}

// Reconcile evaluates every change in set against rackID's registered
// assets and records the resulting discrepancies. It returns the
// recorded discrepancies in change order. Recording is an upsert on
// (session, change), so re-running for the same session is safe.
func (e *Engine) Reconcile(ctx context.Context, set *detect.ChangeSet, rackID string) ([]inventory.Discrepancy, error) {
	if set == nil {
		return nil, fmt.Errorf("reconcile: nil change set")
	}

	var out []inventory.Discrepancy
	for _, change := range set.Changes {
		asset, err := e.store.AssetAtPosition(ctx, rackID, change.EstimatedRU)
		if err != nil {
			return nil, fmt.Errorf("reconcile: session %s: lookup RU %d: %w", set.SessionID, change.EstimatedRU, err)
		}

		outcome, ok := Evaluate(change, asset)
		if !ok {
			continue
		}

		d := &inventory.Discrepancy{
			SessionID:         set.SessionID,
			ChangeID:          change.ID,
			Type:              outcome.Type,
			Description:       outcome.Description,
			RackID:            rackID,
			RUPosition:        change.EstimatedRU,
			Confidence:        change.Confidence,
			Severity:          outcome.Severity,
			RecommendedAction: outcome.RecommendedAction,
			Asset:             snapshotAsset(asset),
			Change:            change,
		}

		id, err := e.store.RecordDiscrepancy(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("reconcile: session %s: record change %d: %w", set.SessionID, change.ID, err)
		}
		d.ID = id
		logging.Debug("reconcile: session %s change %d -> %s (%s)", set.SessionID, change.ID, d.Type, d.Severity)
		out = append(out, *d)
	}

	logging.Info("reconcile: session %s: %d changes, %d discrepancies", set.SessionID, len(set.Changes), len(out))
	return out, nil
}

// snapshotAsset copies the matched asset so later inventory edits cannot
// alter a stored discrepancy.
func snapshotAsset(a *inventory.Asset) *inventory.Asset {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
