package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
)

func TestIdentityResolver_Resolve_UsesStoredIdentity(t *testing.T) {
	ctx := context.Background()
	tier := &fakeTier{name: "sqlite", id: &models.DeviceIdentity{Id: "stored-id"}}
	c := &fakeClient{
		requestNewIdFn: func(ctx context.Context) (string, error) {
			t.Fatal("server must not be asked when an identity is stored")
			return "", nil
		},
	}
	r := NewIdentityResolver(NewIdentityStore(nil, tier), c, nil)

	got, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored-id", got.Id)
}

func TestIdentityResolver_Resolve_ProvisionsFromServer(t *testing.T) {
	ctx := context.Background()
	tier := &fakeTier{name: "sqlite"}
	c := &fakeClient{
		requestNewIdFn: func(ctx context.Context) (string, error) { return "server-id", nil },
	}
	r := NewIdentityResolver(NewIdentityStore(nil, tier), c, nil)

	got, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "server-id", got.Id)
	assert.False(t, got.CreatedLocally)

	require.NotNil(t, tier.stored())
	assert.Equal(t, "server-id", tier.stored().Id)
}

func TestIdentityResolver_Resolve_LocalFallbackWhenServerDown(t *testing.T) {
	ctx := context.Background()
	tier := &fakeTier{name: "sqlite"}
	c := &fakeClient{
		requestNewIdFn: func(ctx context.Context) (string, error) {
			return "", common.ErrUnavailable
		},
	}
	r := NewIdentityResolver(NewIdentityStore(nil, tier), c, nil)

	got, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.True(t, got.Valid())
	assert.True(t, got.CreatedLocally)
	assert.False(t, strings.HasPrefix(got.Id, models.LocalIdPrefix))
	require.NotNil(t, tier.stored())
}

func TestIdentityResolver_Resolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	calls := 0
	c := &fakeClient{
		requestNewIdFn: func(ctx context.Context) (string, error) {
			calls++
			return "server-id", nil
		},
	}
	r := NewIdentityResolver(NewIdentityStore(nil, &fakeTier{name: "sqlite"}), c, nil)

	first, err := r.Resolve(ctx)
	require.NoError(t, err)
	second, err := r.Resolve(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, 1, calls)
}

func TestIdentityResolver_Resolve_FatalWhenNothingPersists(t *testing.T) {
	ctx := context.Background()
	c := &fakeClient{
		requestNewIdFn: func(ctx context.Context) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	// every tier rejects the save and the id is locally generated
	r := NewIdentityResolver(NewIdentityStore(nil, &fakeTier{name: "sqlite", saveFail: true}), c, nil)

	_, err := r.Resolve(ctx)
	assert.ErrorIs(t, err, common.ErrIdentityUnavailable)
}

func TestIdentityResolver_Resolve_ServerIdSurvivesSaveFailure(t *testing.T) {
	ctx := context.Background()
	c := &fakeClient{
		requestNewIdFn: func(ctx context.Context) (string, error) { return "server-id", nil },
	}
	r := NewIdentityResolver(NewIdentityStore(nil, &fakeTier{name: "sqlite", saveFail: true}), c, nil)

	got, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "server-id", got.Id)
}

func TestIdentityResolver_Reset_EstablishesFreshIdentity(t *testing.T) {
	ctx := context.Background()
	tier := &fakeTier{name: "sqlite", id: &models.DeviceIdentity{Id: "old-id"}}
	ids := []string{"fresh-id"}
	c := &fakeClient{
		requestNewIdFn: func(ctx context.Context) (string, error) {
			id := ids[0]
			ids = ids[1:]
			return id, nil
		},
	}
	r := NewIdentityResolver(NewIdentityStore(nil, tier), c, nil)

	before, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, "old-id", before.Id)

	after, err := r.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh-id", after.Id)
	assert.Equal(t, "fresh-id", tier.stored().Id)
}
