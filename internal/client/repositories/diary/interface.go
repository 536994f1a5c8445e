// Package diary contains the local cache of diary entries. Entries accepted
// by the server are cached here as "synced"; entries the server never saw
// live here as "local_only" until a later reconciliation.
package diary

import (
	"context"

	"timecapsule/internal/client/models"
)

// Repository describes CRUD and query operations for locally stored diary
// entries. Implementations are typically backed by a local SQLite database.
type Repository interface {
	// Upsert inserts a new entry or updates an existing one by Id.
	Upsert(ctx context.Context, entry *models.DiaryEntry) error

	// GetAll returns all entries, pinned first, then newest date first.
	GetAll(ctx context.Context) ([]models.DiaryEntry, error)

	// GetByID returns an entry by its identifier.
	GetByID(ctx context.Context, id string) (*models.DiaryEntry, error)

	// DeleteByID removes an entry.
	DeleteByID(ctx context.Context, id string) error

	// GetAllLocalOnly returns entries that have not reached the server yet.
	GetAllLocalOnly(ctx context.Context) ([]*models.DiaryEntry, error)

	// Promote atomically replaces a local-only entry with its server-accepted
	// form (typically swapping the temporary id for the server-issued one).
	Promote(ctx context.Context, oldId string, entry *models.DiaryEntry) error
}
