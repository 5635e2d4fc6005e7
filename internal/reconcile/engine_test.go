package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rackdiff/internal/detect"
	"rackdiff/internal/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInventory is an in-memory Inventory with upsert semantics matching
// the real store.
type fakeInventory struct {
	assets   map[int]*inventory.Asset // keyed by RU position covered
	records  map[string]*inventory.Discrepancy
	nextID   int
	lookupFn func(ru int) error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		assets:  make(map[int]*inventory.Asset),
		records: make(map[string]*inventory.Discrepancy),
	}
}

func (f *fakeInventory) place(a *inventory.Asset) {
	for ru := a.RUPosition; ru < a.RUPosition+a.RUSize; ru++ {
		f.assets[ru] = a
	}
}

func (f *fakeInventory) AssetAtPosition(_ context.Context, _ string, ru int) (*inventory.Asset, error) {
	if f.lookupFn != nil {
		if err := f.lookupFn(ru); err != nil {
			return nil, err
		}
	}
	a, ok := f.assets[ru]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (f *fakeInventory) RecordDiscrepancy(_ context.Context, d *inventory.Discrepancy) (string, error) {
	key := fmt.Sprintf("%s/%d", d.SessionID, d.ChangeID)
	if existing, ok := f.records[key]; ok {
		return existing.ID, nil
	}
	f.nextID++
	cp := *d
	cp.ID = fmt.Sprintf("disc-%d", f.nextID)
	f.records[key] = &cp
	return cp.ID, nil
}

func changeSet(changes ...detect.Change) *detect.ChangeSet {
	return &detect.ChangeSet{
		SessionID: "session-1",
		CreatedAt: time.Now(),
		Score:     0.7,
		Changes:   changes,
	}
}

func TestReconcileDecommissionedAddition(t *testing.T) {
	store := newFakeInventory()
	store.place(&inventory.Asset{
		AssetID:    "ASSET-004",
		RackID:     "RACK-001",
		RUPosition: 4,
		RUSize:     2,
		Status:     inventory.StatusDecommissioned,
	})

	set := changeSet(detect.Change{ID: 1, Type: detect.Addition, EstimatedRU: 4, Confidence: 0.8})
	got, err := New(store).Reconcile(context.Background(), set, "RACK-001")
	require.NoError(t, err)

	require.Len(t, got, 1)
	d := got[0]
	assert.Equal(t, inventory.StatusDiscrepancy, d.Type)
	assert.Equal(t, inventory.SeverityMedium, d.Severity)
	assert.Equal(t, "session-1", d.SessionID)
	assert.Equal(t, 1, d.ChangeID)
	assert.Equal(t, 4, d.RUPosition)
	assert.Equal(t, 0.8, d.Confidence)
	assert.NotEmpty(t, d.ID)
	require.NotNil(t, d.Asset)
	assert.Equal(t, "ASSET-004", d.Asset.AssetID)
}

func TestReconcileRemovalAtEmptyPositionProducesNothing(t *testing.T) {
	store := newFakeInventory()

	set := changeSet(detect.Change{ID: 1, Type: detect.Removal, EstimatedRU: 12, Confidence: 0.6})
	got, err := New(store).Reconcile(context.Background(), set, "RACK-001")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, store.records)
}

func TestReconcileMixedChanges(t *testing.T) {
	store := newFakeInventory()
	store.place(&inventory.Asset{AssetID: "ASSET-007", RUPosition: 16, RUSize: 3, Status: inventory.StatusActive})

	set := changeSet(
		detect.Change{ID: 1, Type: detect.Addition, EstimatedRU: 2, Confidence: 0.9},
		detect.Change{ID: 2, Type: detect.Addition, EstimatedRU: 17, Confidence: 0.8},
		detect.Change{ID: 3, Type: detect.Modification, EstimatedRU: 18, Confidence: 0.4},
	)
	got, err := New(store).Reconcile(context.Background(), set, "RACK-001")
	require.NoError(t, err)

	// Addition over the active asset (change 2) agrees with inventory.
	require.Len(t, got, 2)
	assert.Equal(t, inventory.UnregisteredAddition, got[0].Type)
	assert.Equal(t, 1, got[0].ChangeID)
	assert.Equal(t, inventory.ConfigurationDiscrepancy, got[1].Type)
	assert.Equal(t, 3, got[1].ChangeID)
}

func TestReconcileRerunIsIdempotent(t *testing.T) {
	store := newFakeInventory()
	set := changeSet(detect.Change{ID: 1, Type: detect.Addition, EstimatedRU: 2, Confidence: 0.9})
	engine := New(store)

	first, err := engine.Reconcile(context.Background(), set, "RACK-001")
	require.NoError(t, err)
	second, err := engine.Reconcile(context.Background(), set, "RACK-001")
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Len(t, store.records, 1)
}

func TestReconcileSnapshotIsDetachedFromStore(t *testing.T) {
	store := newFakeInventory()
	asset := &inventory.Asset{AssetID: "ASSET-004", RUPosition: 4, RUSize: 2, Status: inventory.StatusDecommissioned}
	store.place(asset)

	set := changeSet(detect.Change{ID: 1, Type: detect.Addition, EstimatedRU: 4, Confidence: 0.8})
	got, err := New(store).Reconcile(context.Background(), set, "RACK-001")
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Editing the live asset afterwards must not alter the snapshot.
	asset.Status = inventory.StatusActive
	assert.Equal(t, inventory.StatusDecommissioned, got[0].Asset.Status)
}

func TestReconcileLookupErrorSurfaces(t *testing.T) {
	store := newFakeInventory()
	store.lookupFn = func(int) error { return fmt.Errorf("db closed") }

	set := changeSet(detect.Change{ID: 1, Type: detect.Addition, EstimatedRU: 4})
	_, err := New(store).Reconcile(context.Background(), set, "RACK-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session-1")
	assert.Contains(t, err.Error(), "db closed")
}

func TestReconcileNilSet(t *testing.T) {
	_, err := New(newFakeInventory()).Reconcile(context.Background(), nil, "RACK-001")
	assert.Error(t, err)
}
