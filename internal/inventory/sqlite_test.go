package inventory

import (
	"context"
	"testing"

	"rackdiff/internal/detect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addTestRack(t *testing.T, store *SQLiteStore) {
	t.Helper()
	require.NoError(t, store.AddRack(context.Background(), Rack{
		RackID:      "RACK-001",
		Location:    "Room A",
		Description: "Test rack",
		TotalRU:     42,
	}))
}

func testAsset(id string, ru, size int, status string) Asset {
	return Asset{
		AssetID:      id,
		RackID:       "RACK-001",
		RUPosition:   ru,
		RUSize:       size,
		AssetType:    "Server",
		Model:        "Dell PowerEdge R740",
		SerialNumber: "SN-" + id,
		Status:       status,
	}
}

func TestAssetAtPositionRangeLookup(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	addTestRack(t, store)

	// 3U asset occupying RUs 16, 17, 18
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-STOR", 16, 3, StatusActive)))

	for _, ru := range []int{16, 17, 18} {
		a, err := store.AssetAtPosition(ctx, "RACK-001", ru)
		require.NoError(t, err)
		require.NotNil(t, a, "RU %d should be occupied", ru)
		assert.Equal(t, "ASSET-STOR", a.AssetID)
	}

	for _, ru := range []int{15, 19} {
		a, err := store.AssetAtPosition(ctx, "RACK-001", ru)
		require.NoError(t, err)
		assert.Nil(t, a, "RU %d should be empty", ru)
	}
}

func TestAssetsForRackOrderedByPosition(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	addTestRack(t, store)

	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-B", 20, 2, StatusActive)))
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-A", 5, 1, StatusActive)))
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-C", 30, 2, StatusActive)))

	assets, err := store.AssetsForRack(ctx, "RACK-001")
	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, "ASSET-A", assets[0].AssetID)
	assert.Equal(t, "ASSET-B", assets[1].AssetID)
	assert.Equal(t, "ASSET-C", assets[2].AssetID)
}

func TestUpdateAssetTypedFields(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	addTestRack(t, store)
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-001", 7, 2, StatusDecommissioned)))

	status := StatusActive
	newRU := 9
	require.NoError(t, store.UpdateAsset(ctx, "ASSET-001", AssetUpdate{
		Status:     &status,
		RUPosition: &newRU,
	}))

	a, err := store.AssetByID(ctx, "ASSET-001")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, a.Status)
	assert.Equal(t, 9, a.RUPosition)
	// Untouched fields survive
	assert.Equal(t, "Dell PowerEdge R740", a.Model)
}

func TestUpdateAssetRejectsEmptyUpdate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	addTestRack(t, store)
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-001", 7, 2, StatusActive)))

	assert.Error(t, store.UpdateAsset(ctx, "ASSET-001", AssetUpdate{}))
}

func TestAssetLookupsNotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.AssetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.AssetBySerial(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Rack(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveAsset(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	addTestRack(t, store)
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-001", 7, 2, StatusActive)))

	require.NoError(t, store.RemoveAsset(ctx, "ASSET-001"))
	_, err := store.AssetByID(ctx, "ASSET-001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRackUtilization(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	addTestRack(t, store)
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-001", 1, 2, StatusActive)))
	require.NoError(t, store.AddAsset(ctx, testAsset("ASSET-002", 10, 3, StatusActive)))

	u, err := store.RackUtilization(ctx, "RACK-001")
	require.NoError(t, err)
	assert.Equal(t, 42, u.TotalRU)
	assert.Equal(t, 5, u.UsedRU)
	assert.Equal(t, 37, u.AvailableRU)
	assert.Equal(t, 2, u.AssetCount)
	assert.InDelta(t, 11.9, u.UtilizationPct, 0.1)
}

func sampleDiscrepancy(sessionID string, changeID int) *Discrepancy {
	return &Discrepancy{
		SessionID:         sessionID,
		ChangeID:          changeID,
		Type:              UnregisteredAddition,
		Description:       "Hardware added at RU 4 but not registered",
		RackID:            "RACK-001",
		RUPosition:        4,
		Confidence:        0.8,
		Severity:          SeverityHigh,
		RecommendedAction: "Register new hardware",
		Change: detect.Change{
			ID:          changeID,
			Type:        detect.Addition,
			Confidence:  0.8,
			EstimatedRU: 4,
		},
	}
}

func TestRecordDiscrepancyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	d := sampleDiscrepancy("session-1", 1)
	d.Asset = &Asset{AssetID: "ASSET-004", RackID: "RACK-001", RUPosition: 4, RUSize: 2, Status: StatusDecommissioned}

	id, err := store.RecordDiscrepancy(ctx, d)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.Discrepancy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, UnregisteredAddition, got.Type)
	assert.Equal(t, StatusOpen, got.Status)
	assert.Equal(t, SeverityHigh, got.Severity)
	require.NotNil(t, got.Asset)
	assert.Equal(t, "ASSET-004", got.Asset.AssetID)
	assert.Equal(t, StatusDecommissioned, got.Asset.Status)
	assert.Equal(t, detect.Addition, got.Change.Type)
}

func TestRecordDiscrepancyUpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := sampleDiscrepancy("session-1", 1)
	id1, err := store.RecordDiscrepancy(ctx, first)
	require.NoError(t, err)

	// Re-running reconciliation produces the same (session, change) pair
	second := sampleDiscrepancy("session-1", 1)
	second.Confidence = 0.9
	id2, err := store.RecordDiscrepancy(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)

	all, err := store.DiscrepanciesBySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 0.9, all[0].Confidence)

	// A different change in the same session gets its own record
	third := sampleDiscrepancy("session-1", 2)
	id3, err := store.RecordDiscrepancy(ctx, third)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestMarkResolvedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	id, err := store.RecordDiscrepancy(ctx, sampleDiscrepancy("session-1", 1))
	require.NoError(t, err)

	ok, err := store.MarkResolved(ctx, id, "operator@example.com", "registered the new server")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Discrepancy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, got.Status)
	assert.Equal(t, "operator@example.com", got.ResolvedBy)
	assert.Equal(t, "registered the new server", got.ResolutionNotes)
	require.NotNil(t, got.ResolvedAt)

	// Second resolution is a no-op
	ok, err = store.MarkResolved(ctx, id, "someone-else", "again")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = store.Discrepancy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "operator@example.com", got.ResolvedBy)

	// Unknown id resolves nothing
	ok, err = store.MarkResolved(ctx, "nope", "x", "y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolutionPreservedAcrossReRecord(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	id, err := store.RecordDiscrepancy(ctx, sampleDiscrepancy("session-1", 1))
	require.NoError(t, err)

	_, err = store.MarkResolved(ctx, id, "operator", "done")
	require.NoError(t, err)

	// Re-running reconciliation must not reopen the discrepancy
	_, err = store.RecordDiscrepancy(ctx, sampleDiscrepancy("session-1", 1))
	require.NoError(t, err)

	got, err := store.Discrepancy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, got.Status)
}

func TestSeedPopulatesOnce(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, Seed(ctx, store))

	racks, err := store.Racks(ctx)
	require.NoError(t, err)
	require.Len(t, racks, 1)
	assert.Equal(t, "RACK-001", racks[0].RackID)

	assets, err := store.AssetsForRack(ctx, "RACK-001")
	require.NoError(t, err)
	assert.Len(t, assets, 15)

	// Seeding again is a no-op
	require.NoError(t, Seed(ctx, store))
	assets, err = store.AssetsForRack(ctx, "RACK-001")
	require.NoError(t, err)
	assert.Len(t, assets, 15)
}

func TestContainsRU(t *testing.T) {
	a := Asset{RUPosition: 16, RUSize: 3}
	assert.True(t, a.ContainsRU(16))
	assert.True(t, a.ContainsRU(18))
	assert.False(t, a.ContainsRU(15))
	assert.False(t, a.ContainsRU(19))
}
