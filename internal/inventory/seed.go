package inventory

import "context"

// Seed populates an empty inventory with a demonstration 42U rack. It is
// a no-op when any rack already exists.
func Seed(ctx context.Context, store *SQLiteStore) error {
	racks, err := store.Racks(ctx)
	if err != nil {
		return err
	}
	if len(racks) > 0 {
		return nil
	}

	if err := store.AddRack(ctx, Rack{
		RackID:      "RACK-001",
		Location:    "Server Room A",
		Description: "Primary Web Server Rack",
		TotalRU:     42,
	}); err != nil {
		return err
	}

	assets := []Asset{
		{AssetID: "ASSET-001", RUPosition: 1, RUSize: 2, AssetType: "UPS", Model: "APC Smart-UPS 1500", SerialNumber: "SN12345678"},
		{AssetID: "ASSET-002", RUPosition: 3, RUSize: 1, AssetType: "PDU", Model: "APC AP7900", SerialNumber: "SN23456789"},
		{AssetID: "ASSET-003", RUPosition: 5, RUSize: 1, AssetType: "Switch", Model: "Cisco Catalyst 3850-48T", SerialNumber: "SN34567890"},
		{AssetID: "ASSET-004", RUPosition: 7, RUSize: 2, AssetType: "Server", Model: "Dell PowerEdge R740", SerialNumber: "SN45678901"},
		{AssetID: "ASSET-005", RUPosition: 10, RUSize: 2, AssetType: "Server", Model: "Dell PowerEdge R740", SerialNumber: "SN56789012"},
		{AssetID: "ASSET-006", RUPosition: 13, RUSize: 2, AssetType: "Server", Model: "HP ProLiant DL380 Gen10", SerialNumber: "SN67890123"},
		{AssetID: "ASSET-007", RUPosition: 16, RUSize: 3, AssetType: "Storage", Model: "NetApp FAS2750", SerialNumber: "SN78901234"},
		{AssetID: "ASSET-008", RUPosition: 20, RUSize: 2, AssetType: "Server", Model: "Dell PowerEdge R740", SerialNumber: "SN89012345"},
		{AssetID: "ASSET-009", RUPosition: 23, RUSize: 2, AssetType: "Server", Model: "HP ProLiant DL380 Gen10", SerialNumber: "SN90123456"},
		{AssetID: "ASSET-010", RUPosition: 26, RUSize: 2, AssetType: "Server", Model: "Dell PowerEdge R740", SerialNumber: "SN01234567"},
		{AssetID: "ASSET-011", RUPosition: 29, RUSize: 1, AssetType: "Switch", Model: "Cisco Nexus 9300", SerialNumber: "SN12345670"},
		{AssetID: "ASSET-012", RUPosition: 31, RUSize: 2, AssetType: "Server", Model: "HP ProLiant DL380 Gen10", SerialNumber: "SN23456701"},
		{AssetID: "ASSET-013", RUPosition: 34, RUSize: 2, AssetType: "Server", Model: "Dell PowerEdge R740", SerialNumber: "SN34567012"},
		{AssetID: "ASSET-014", RUPosition: 37, RUSize: 2, AssetType: "Server", Model: "HP ProLiant DL380 Gen10", SerialNumber: "SN45670123"},
		{AssetID: "ASSET-015", RUPosition: 40, RUSize: 1, AssetType: "KVM", Model: "Dell KVM Console Switch", SerialNumber: "SN56701234"},
	}

	for _, a := range assets {
		a.RackID = "RACK-001"
		a.Status = StatusActive
		if err := store.AddAsset(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
