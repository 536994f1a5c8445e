package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"timecapsule/internal/common"
	"timecapsule/internal/dbx"

	"timecapsule/internal/client/models"
)

const identityKey = "device_identity"

// SQLiteTier persists the identity in the structured local database. It is
// the highest-priority tier.
type SQLiteTier struct {
	db dbx.DBTX
}

func NewSQLiteTier(db dbx.DBTX) *SQLiteTier {
	return &SQLiteTier{db: db}
}

func (t *SQLiteTier) Name() string { return "sqlite" }

func (t *SQLiteTier) Load(ctx context.Context) (*models.DeviceIdentity, error) {
	var value []byte
	err := t.db.QueryRowContext(ctx, `SELECT value FROM identity WHERE key = ?`, identityKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}

	var id models.DeviceIdentity
	if err := json.Unmarshal(value, &id); err != nil || !id.Valid() {
		// a corrupt row counts as empty, not as a hard failure
		return nil, common.ErrNotFound
	}
	return &id, nil
}

func (t *SQLiteTier) Save(ctx context.Context, id *models.DeviceIdentity) error {
	value, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO identity (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, identityKey, value)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	return nil
}

func (t *SQLiteTier) Clear(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM identity WHERE key = ?`, identityKey)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	return nil
}
