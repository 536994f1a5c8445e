// Package identity contains the storage tiers that redundantly persist the
// device identity. Tiers are interchangeable backends behind one interface:
// reads iterate them in priority order, writes fan out to all of them.
package identity

import (
	"context"

	"timecapsule/internal/client/models"
)

// Tier is a single storage backend capable of holding the device identity.
//
// Load returns common.ErrNotFound when the tier is empty and
// common.ErrTierUnavailable (possibly wrapped) when the backend itself is
// unusable. Implementations must never panic on a broken backend.
type Tier interface {
	// Name identifies the tier in diagnostics.
	Name() string

	// Load returns the stored identity, if any.
	Load(ctx context.Context) (*models.DeviceIdentity, error)

	// Save stores the identity, replacing any previous value.
	Save(ctx context.Context, id *models.DeviceIdentity) error

	// Clear removes the stored identity. Clearing an empty tier is not an
	// error.
	Clear(ctx context.Context) error
}
