package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS racks (
	rack_id TEXT PRIMARY KEY,
	location TEXT,
	description TEXT,
	total_ru INTEGER,
	last_updated TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assets (
	asset_id TEXT PRIMARY KEY,
	rack_id TEXT,
	ru_position INTEGER,
	ru_size INTEGER,
	asset_type TEXT,
	model TEXT,
	serial_number TEXT,
	status TEXT,
	installation_date TIMESTAMP,
	last_updated TIMESTAMP,
	FOREIGN KEY (rack_id) REFERENCES racks(rack_id)
);
CREATE INDEX IF NOT EXISTS idx_assets_rack ON assets(rack_id, ru_position);
CREATE INDEX IF NOT EXISTS idx_assets_serial ON assets(serial_number);

CREATE TABLE IF NOT EXISTS change_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_id TEXT,
	rack_id TEXT,
	change_type TEXT,
	old_ru_position INTEGER,
	new_ru_position INTEGER,
	change_date TIMESTAMP,
	changed_by TEXT
);

CREATE TABLE IF NOT EXISTS discrepancies (
	discrepancy_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	change_id INTEGER NOT NULL,
	type TEXT,
	description TEXT,
	rack_id TEXT,
	ru_position INTEGER,
	confidence REAL,
	severity TEXT,
	status TEXT,
	recommended_action TEXT,
	asset_snapshot TEXT,
	change_snapshot TEXT,
	created_at TIMESTAMP,
	resolved_at TIMESTAMP,
	resolved_by TEXT,
	resolution_notes TEXT,
	UNIQUE(session_id, change_id)
);`

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the inventory database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory database: %w", err)
	}

	// Every pooled connection to :memory: would get its own empty
	// database, so pin the pool to one connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize inventory schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddRack registers a new rack.
func (s *SQLiteStore) AddRack(ctx context.Context, rack Rack) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO racks (rack_id, location, description, total_ru, last_updated)
		VALUES (?, ?, ?, ?, ?)`,
		rack.RackID, rack.Location, rack.Description, rack.TotalRU, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add rack %s: %w", rack.RackID, err)
	}
	return nil
}

// Racks lists all racks.
func (s *SQLiteStore) Racks(ctx context.Context) ([]Rack, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rack_id, location, description, total_ru, last_updated
		FROM racks ORDER BY rack_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list racks: %w", err)
	}
	defer rows.Close()

	var racks []Rack
	for rows.Next() {
		var r Rack
		if err := rows.Scan(&r.RackID, &r.Location, &r.Description, &r.TotalRU, &r.LastUpdated); err != nil {
			return nil, err
		}
		racks = append(racks, r)
	}
	return racks, rows.Err()
}

// Rack fetches one rack by id.
func (s *SQLiteStore) Rack(ctx context.Context, rackID string) (*Rack, error) {
	var r Rack
	err := s.db.QueryRowContext(ctx, `
		SELECT rack_id, location, description, total_ru, last_updated
		FROM racks WHERE rack_id = ?`, rackID).
		Scan(&r.RackID, &r.Location, &r.Description, &r.TotalRU, &r.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rack %s: %w", rackID, err)
	}
	return &r, nil
}

// RackUtilization summarizes used and available rack units.
func (s *SQLiteStore) RackUtilization(ctx context.Context, rackID string) (*Utilization, error) {
	rack, err := s.Rack(ctx, rackID)
	if err != nil {
		return nil, err
	}

	var used, count int
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ru_size), 0), COUNT(*) FROM assets WHERE rack_id = ?`, rackID).
		Scan(&used, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to compute utilization for %s: %w", rackID, err)
	}

	u := &Utilization{
		RackID:      rackID,
		TotalRU:     rack.TotalRU,
		UsedRU:      used,
		AvailableRU: rack.TotalRU - used,
		AssetCount:  count,
	}
	if rack.TotalRU > 0 {
		u.UtilizationPct = float64(used) / float64(rack.TotalRU) * 100
	}
	return u, nil
}

// AddAsset registers a new asset and records the addition in the change
// history.
func (s *SQLiteStore) AddAsset(ctx context.Context, asset Asset) error {
	now := time.Now().UTC()
	if asset.InstallationDate.IsZero() {
		asset.InstallationDate = now
	}
	if asset.Status == "" {
		asset.Status = StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (asset_id, rack_id, ru_position, ru_size, asset_type,
			model, serial_number, status, installation_date, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.AssetID, asset.RackID, asset.RUPosition, asset.RUSize, asset.AssetType,
		asset.Model, asset.SerialNumber, asset.Status, asset.InstallationDate, now)
	if err != nil {
		return fmt.Errorf("failed to add asset %s: %w", asset.AssetID, err)
	}

	s.recordHistory(ctx, asset.AssetID, asset.RackID, "Added", nil, &asset.RUPosition)
	return nil
}

// RemoveAsset deletes an asset and records the removal.
func (s *SQLiteStore) RemoveAsset(ctx context.Context, assetID string) error {
	asset, err := s.AssetByID(ctx, assetID)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE asset_id = ?`, assetID); err != nil {
		return fmt.Errorf("failed to remove asset %s: %w", assetID, err)
	}

	s.recordHistory(ctx, assetID, asset.RackID, "Removed", &asset.RUPosition, nil)
	return nil
}

// UpdateAsset applies the non-nil fields of the update. The SET clause is
// built from a fixed column list; there is no way to address other
// columns.
func (s *SQLiteStore) UpdateAsset(ctx context.Context, assetID string, update AssetUpdate) error {
	if update.IsZero() {
		return fmt.Errorf("update for asset %s has no fields set", assetID)
	}

	current, err := s.AssetByID(ctx, assetID)
	if err != nil {
		return err
	}

	var sets []string
	var args []interface{}
	appendSet := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.RUPosition != nil {
		appendSet("ru_position", *update.RUPosition)
	}
	if update.RUSize != nil {
		appendSet("ru_size", *update.RUSize)
	}
	if update.AssetType != nil {
		appendSet("asset_type", *update.AssetType)
	}
	if update.Model != nil {
		appendSet("model", *update.Model)
	}
	if update.SerialNumber != nil {
		appendSet("serial_number", *update.SerialNumber)
	}
	if update.Status != nil {
		appendSet("status", *update.Status)
	}
	appendSet("last_updated", time.Now().UTC())

	query := "UPDATE assets SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += " WHERE asset_id = ?"
	args = append(args, assetID)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update asset %s: %w", assetID, err)
	}

	if update.RUPosition != nil && *update.RUPosition != current.RUPosition {
		s.recordHistory(ctx, assetID, current.RackID, "Relocated", &current.RUPosition, update.RUPosition)
	} else {
		s.recordHistory(ctx, assetID, current.RackID, "Updated", &current.RUPosition, &current.RUPosition)
	}
	return nil
}

const assetColumns = `asset_id, rack_id, ru_position, ru_size, asset_type,
	model, serial_number, status, installation_date, last_updated`

func scanAsset(row interface{ Scan(...interface{}) error }) (*Asset, error) {
	var a Asset
	err := row.Scan(&a.AssetID, &a.RackID, &a.RUPosition, &a.RUSize, &a.AssetType,
		&a.Model, &a.SerialNumber, &a.Status, &a.InstallationDate, &a.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AssetByID fetches one asset.
func (s *SQLiteStore) AssetByID(ctx context.Context, assetID string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = ?`, assetID)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", assetID, err)
	}
	return a, nil
}

// AssetBySerial fetches one asset by serial number.
func (s *SQLiteStore) AssetBySerial(ctx context.Context, serial string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE serial_number = ?`, serial)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset by serial %s: %w", serial, err)
	}
	return a, nil
}

// AssetsForRack lists a rack's assets ordered by position.
func (s *SQLiteStore) AssetsForRack(ctx context.Context, rackID string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE rack_id = ? ORDER BY ru_position`, rackID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets for rack %s: %w", rackID, err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// AssetAtPosition returns the asset whose rack-unit range contains ru, or
// (nil, nil) when the position is unoccupied.
func (s *SQLiteStore) AssetAtPosition(ctx context.Context, rackID string, ru int) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE rack_id = ? AND ru_position <= ? AND ru_position + ru_size - 1 >= ?`,
		rackID, ru, ru)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up RU %d in rack %s: %w", ru, rackID, err)
	}
	return a, nil
}

// RecordDiscrepancy persists a discrepancy. Recording the same
// (session, change) pair again updates the classification in place and
// keeps the original id, creation time, and resolution state.
func (s *SQLiteStore) RecordDiscrepancy(ctx context.Context, d *Discrepancy) (string, error) {
	assetJSON := sql.NullString{}
	if d.Asset != nil {
		data, err := json.Marshal(d.Asset)
		if err != nil {
			return "", fmt.Errorf("failed to marshal asset snapshot: %w", err)
		}
		assetJSON = sql.NullString{String: string(data), Valid: true}
	}
	changeJSON, err := json.Marshal(d.Change)
	if err != nil {
		return "", fmt.Errorf("failed to marshal change snapshot: %w", err)
	}

	var existingID string
	var existingStatus DiscrepancyStatus
	var existingCreated time.Time
	err = s.db.QueryRowContext(ctx, `
		SELECT discrepancy_id, status, created_at FROM discrepancies
		WHERE session_id = ? AND change_id = ?`, d.SessionID, d.ChangeID).
		Scan(&existingID, &existingStatus, &existingCreated)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		d.ID = uuid.NewString()
		d.Status = StatusOpen
		d.CreatedAt = time.Now().UTC()
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO discrepancies (discrepancy_id, session_id, change_id, type,
				description, rack_id, ru_position, confidence, severity, status,
				recommended_action, asset_snapshot, change_snapshot, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.SessionID, d.ChangeID, d.Type, d.Description, d.RackID,
			d.RUPosition, d.Confidence, d.Severity, d.Status, d.RecommendedAction,
			assetJSON, string(changeJSON), d.CreatedAt)
		if err != nil {
			return "", fmt.Errorf("failed to record discrepancy: %w", err)
		}

	case err == nil:
		d.ID = existingID
		d.Status = existingStatus
		d.CreatedAt = existingCreated
		_, err = s.db.ExecContext(ctx, `
			UPDATE discrepancies SET type = ?, description = ?, rack_id = ?,
				ru_position = ?, confidence = ?, severity = ?,
				recommended_action = ?, asset_snapshot = ?, change_snapshot = ?
			WHERE discrepancy_id = ?`,
			d.Type, d.Description, d.RackID, d.RUPosition, d.Confidence,
			d.Severity, d.RecommendedAction, assetJSON, string(changeJSON), d.ID)
		if err != nil {
			return "", fmt.Errorf("failed to update discrepancy %s: %w", d.ID, err)
		}

	default:
		return "", fmt.Errorf("failed to look up discrepancy: %w", err)
	}

	return d.ID, nil
}

const discrepancyColumns = `discrepancy_id, session_id, change_id, type, description,
	rack_id, ru_position, confidence, severity, status, recommended_action,
	asset_snapshot, change_snapshot, created_at, resolved_at, resolved_by, resolution_notes`

func (s *SQLiteStore) scanDiscrepancy(row interface{ Scan(...interface{}) error }) (*Discrepancy, error) {
	var d Discrepancy
	var assetJSON, resolvedBy, notes sql.NullString
	var changeJSON string
	var resolvedAt sql.NullTime

	err := row.Scan(&d.ID, &d.SessionID, &d.ChangeID, &d.Type, &d.Description,
		&d.RackID, &d.RUPosition, &d.Confidence, &d.Severity, &d.Status,
		&d.RecommendedAction, &assetJSON, &changeJSON, &d.CreatedAt,
		&resolvedAt, &resolvedBy, &notes)
	if err != nil {
		return nil, err
	}

	if assetJSON.Valid {
		var a Asset
		if err := json.Unmarshal([]byte(assetJSON.String), &a); err != nil {
			return nil, fmt.Errorf("corrupt asset snapshot for %s: %w", d.ID, err)
		}
		d.Asset = &a
	}
	if err := json.Unmarshal([]byte(changeJSON), &d.Change); err != nil {
		return nil, fmt.Errorf("corrupt change snapshot for %s: %w", d.ID, err)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		d.ResolvedAt = &t
	}
	d.ResolvedBy = resolvedBy.String
	d.ResolutionNotes = notes.String
	return &d, nil
}

// Discrepancy fetches one discrepancy by id.
func (s *SQLiteStore) Discrepancy(ctx context.Context, id string) (*Discrepancy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+discrepancyColumns+` FROM discrepancies WHERE discrepancy_id = ?`, id)
	d, err := s.scanDiscrepancy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discrepancy %s: %w", id, err)
	}
	return d, nil
}

// DiscrepanciesBySession lists a session's discrepancies in change order.
func (s *SQLiteStore) DiscrepanciesBySession(ctx context.Context, sessionID string) ([]Discrepancy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+discrepancyColumns+` FROM discrepancies WHERE session_id = ? ORDER BY change_id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discrepancies for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []Discrepancy
	for rows.Next() {
		d, err := s.scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// MarkResolved transitions a discrepancy Open -> Resolved. The guard on
// status makes the transition happen at most once.
func (s *SQLiteStore) MarkResolved(ctx context.Context, id, resolvedBy, notes string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE discrepancies
		SET status = ?, resolved_at = ?, resolved_by = ?, resolution_notes = ?
		WHERE discrepancy_id = ? AND status = ?`,
		StatusResolved, time.Now().UTC(), resolvedBy, notes, id, StatusOpen)
	if err != nil {
		return false, fmt.Errorf("failed to resolve discrepancy %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// recordHistory appends to the change-history audit trail. History is
// advisory; failures do not fail the primary operation.
func (s *SQLiteStore) recordHistory(ctx context.Context, assetID, rackID, changeType string, oldRU, newRU *int) {
	_, _ = s.db.ExecContext(ctx, `
		INSERT INTO change_history (asset_id, rack_id, change_type,
			old_ru_position, new_ru_position, change_date, changed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		assetID, rackID, changeType, nullableInt(oldRU), nullableInt(newRU),
		time.Now().UTC(), "system")
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
