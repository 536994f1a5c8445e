// Package services implements the client-resident logic of Time Capsule:
// redundant identity persistence, identity resolution, session negotiation,
// message delivery, and offline-tolerant diary sync.
package services

import (
	"context"
	"errors"
	"fmt"

	"timecapsule/internal/client/models"
	"timecapsule/internal/client/repositories/identity"
	"timecapsule/internal/common"
	"timecapsule/internal/logging"
)

// IdentityStore persists one DeviceIdentity redundantly across an ordered
// list of storage tiers. Reads walk the tiers in priority order; writes fan
// out to all of them, so losing any single tier never loses the identity.
type IdentityStore struct {
	tiers []identity.Tier
	log   logging.Logger
}

func NewIdentityStore(log logging.Logger, tiers ...identity.Tier) *IdentityStore {
	if log == nil {
		log = logging.Nop{}
	}
	return &IdentityStore{tiers: tiers, log: log}
}

// Save writes the identity to every tier. A tier failure is logged and
// swallowed as long as at least one tier succeeds; only a total failure is
// reported to the caller.
func (s *IdentityStore) Save(ctx context.Context, id *models.DeviceIdentity) error {
	if len(s.tiers) == 0 {
		return fmt.Errorf("%w: no tiers configured", common.ErrTierUnavailable)
	}

	saved := 0
	for _, tier := range s.tiers {
		if err := tier.Save(ctx, id); err != nil {
			s.log.Warn(ctx, "identity tier save failed", "tier", tier.Name(), "error", err)
			continue
		}
		saved++
	}
	if saved == 0 {
		return fmt.Errorf("%w: identity not saved to any tier", common.ErrTierUnavailable)
	}
	return nil
}

// Load returns the first well-formed identity in priority order and
// opportunistically backfills every tier that was empty, stale, or
// disagreeing, restoring full redundancy after a partial wipe.
func (s *IdentityStore) Load(ctx context.Context) (*models.DeviceIdentity, error) {
	var winner *models.DeviceIdentity
	var backfill []identity.Tier

	for _, tier := range s.tiers {
		id, err := tier.Load(ctx)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				s.log.Warn(ctx, "identity tier load failed", "tier", tier.Name(), "error", err)
			}
			backfill = append(backfill, tier)
			continue
		}
		if winner == nil {
			winner = id
			continue
		}
		if id.Id != winner.Id {
			backfill = append(backfill, tier)
		}
	}

	if winner == nil {
		return nil, common.ErrNotFound
	}

	for _, tier := range backfill {
		if err := tier.Save(ctx, winner); err != nil {
			s.log.Warn(ctx, "identity backfill failed", "tier", tier.Name(), "error", err)
		}
	}
	return winner, nil
}

// Clear removes the identity from every tier, best effort. Used only by an
// explicit device reset.
func (s *IdentityStore) Clear(ctx context.Context) {
	for _, tier := range s.tiers {
		if err := tier.Clear(ctx); err != nil {
			s.log.Warn(ctx, "identity tier clear failed", "tier", tier.Name(), "error", err)
		}
	}
}
