package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"timecapsule/internal/client/client"
	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
	"timecapsule/internal/logging"
)

// IdentityResolver bootstraps the device identity on startup: load from
// storage, otherwise request one from the server, otherwise synthesize one
// locally. The resolver is the sole writer of the identity; it is only ever
// replaced through an explicit Reset.
type IdentityResolver struct {
	store   *IdentityStore
	client  client.Client
	log     logging.Logger
	current *models.DeviceIdentity
}

func NewIdentityResolver(store *IdentityStore, c client.Client, log logging.Logger) *IdentityResolver {
	if log == nil {
		log = logging.Nop{}
	}
	return &IdentityResolver{store: store, client: c, log: log}
}

// Resolve returns the device identity, establishing one if necessary.
// Idempotent: once an identity exists, every later call returns it.
//
// The only failure is common.ErrIdentityUnavailable: nothing could be read,
// the server was unreachable, and no tier would accept the locally generated
// replacement. A fresh random id on every start is no identity at all, so
// the caller must send the user to profile setup instead of a session-less
// chat.
func (r *IdentityResolver) Resolve(ctx context.Context) (models.DeviceIdentity, error) {
	if r.current != nil {
		return *r.current, nil
	}

	stored, err := r.store.Load(ctx)
	if err == nil {
		r.current = stored
		return *stored, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		r.log.Warn(ctx, "identity load failed, provisioning a new one", "error", err)
	}

	id := r.provision(ctx)
	if err := r.store.Save(ctx, id); err != nil {
		if id.CreatedLocally {
			r.log.Error(ctx, "identity cannot be established", "error", err)
			return models.DeviceIdentity{}, common.ErrIdentityUnavailable
		}
		// the server knows this id; losing local copies is degraded but usable
		r.log.Warn(ctx, "identity not persisted locally", "error", err)
	}

	r.current = id
	return *id, nil
}

// provision asks the server to mint an id and falls back to local generation
// on any failure. It never returns an error: the application must always be
// able to proceed, degraded.
func (r *IdentityResolver) provision(ctx context.Context) *models.DeviceIdentity {
	newId, err := r.client.RequestNewId(ctx)
	if err != nil {
		r.log.Warn(ctx, "identity provisioning failed, generating locally", "error", err)
		return &models.DeviceIdentity{Id: uuid.NewString(), CreatedLocally: true}
	}
	return &models.DeviceIdentity{Id: newId}
}

// Reset discards the stored identity everywhere and establishes a fresh one.
func (r *IdentityResolver) Reset(ctx context.Context) (models.DeviceIdentity, error) {
	r.store.Clear(ctx)
	r.current = nil
	return r.Resolve(ctx)
}
