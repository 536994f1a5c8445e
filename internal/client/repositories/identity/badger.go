package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
)

// BadgerTier persists the identity in a simple key-value store, independent
// of the structured database, so wiping one does not lose the other.
type BadgerTier struct {
	db *badger.DB
}

// OpenBadgerTier opens (or creates) the key-value store under dirPath.
func OpenBadgerTier(dirPath string) (*BadgerTier, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open key-value store: %w", err)
	}
	return &BadgerTier{db: db}, nil
}

// NewBadgerTier wraps an already opened store (used by tests with an
// in-memory instance).
func NewBadgerTier(db *badger.DB) *BadgerTier {
	return &BadgerTier{db: db}
}

func (t *BadgerTier) Name() string { return "kv" }

func (t *BadgerTier) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

func (t *BadgerTier) Load(ctx context.Context) (*models.DeviceIdentity, error) {
	var id models.DeviceIdentity
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(identityKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &id)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	if !id.Valid() {
		return nil, common.ErrNotFound
	}
	return &id, nil
}

func (t *BadgerTier) Save(ctx context.Context, id *models.DeviceIdentity) error {
	value, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	err = t.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(identityKey), value)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	return nil
}

func (t *BadgerTier) Clear(ctx context.Context) error {
	err := t.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(identityKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	return nil
}
