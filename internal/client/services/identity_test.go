package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
)

func TestIdentityStore_Save_FansOutToAllTiers(t *testing.T) {
	ctx := context.Background()
	t1 := &fakeTier{name: "sqlite"}
	t2 := &fakeTier{name: "badger"}
	t3 := &fakeTier{name: "file"}
	store := NewIdentityStore(nil, t1, t2, t3)

	id := &models.DeviceIdentity{Id: "device-1"}
	require.NoError(t, store.Save(ctx, id))

	for _, tier := range []*fakeTier{t1, t2, t3} {
		stored := tier.stored()
		require.NotNil(t, stored, tier.name)
		assert.Equal(t, "device-1", stored.Id)
	}
}

func TestIdentityStore_Save_PartialFailureIsSuccess(t *testing.T) {
	ctx := context.Background()
	t1 := &fakeTier{name: "sqlite", saveFail: true}
	t2 := &fakeTier{name: "file"}
	store := NewIdentityStore(nil, t1, t2)

	require.NoError(t, store.Save(ctx, &models.DeviceIdentity{Id: "device-1"}))
	assert.Nil(t, t1.stored())
	assert.NotNil(t, t2.stored())
}

func TestIdentityStore_Save_AllTiersFail(t *testing.T) {
	ctx := context.Background()
	store := NewIdentityStore(nil,
		&fakeTier{name: "sqlite", saveFail: true},
		&fakeTier{name: "file", broken: true},
	)

	err := store.Save(ctx, &models.DeviceIdentity{Id: "device-1"})
	assert.ErrorIs(t, err, common.ErrTierUnavailable)
}

func TestIdentityStore_Load_PriorityOrderWins(t *testing.T) {
	ctx := context.Background()
	t1 := &fakeTier{name: "sqlite", id: &models.DeviceIdentity{Id: "primary"}}
	t2 := &fakeTier{name: "file", id: &models.DeviceIdentity{Id: "stale"}}
	store := NewIdentityStore(nil, t1, t2)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "primary", got.Id)

	// the disagreeing tier is rewritten with the winner
	assert.Equal(t, "primary", t2.stored().Id)
}

func TestIdentityStore_Load_BackfillsEmptyTiers(t *testing.T) {
	ctx := context.Background()
	t1 := &fakeTier{name: "sqlite"}
	t2 := &fakeTier{name: "badger", id: &models.DeviceIdentity{Id: "survivor"}}
	t3 := &fakeTier{name: "file"}
	store := NewIdentityStore(nil, t1, t2, t3)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "survivor", got.Id)

	require.NotNil(t, t1.stored())
	assert.Equal(t, "survivor", t1.stored().Id)
	require.NotNil(t, t3.stored())
	assert.Equal(t, "survivor", t3.stored().Id)
}

func TestIdentityStore_Load_BrokenTierIsSkipped(t *testing.T) {
	ctx := context.Background()
	t1 := &fakeTier{name: "sqlite", broken: true}
	t2 := &fakeTier{name: "file", id: &models.DeviceIdentity{Id: "device-1"}}
	store := NewIdentityStore(nil, t1, t2)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "device-1", got.Id)
}

func TestIdentityStore_Load_AllEmpty(t *testing.T) {
	store := NewIdentityStore(nil, &fakeTier{name: "sqlite"}, &fakeTier{name: "file"})

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestIdentityStore_Clear_ClearsAllTiers(t *testing.T) {
	ctx := context.Background()
	t1 := &fakeTier{name: "sqlite", id: &models.DeviceIdentity{Id: "device-1"}}
	t2 := &fakeTier{name: "file", id: &models.DeviceIdentity{Id: "device-1"}}
	store := NewIdentityStore(nil, t1, t2)

	store.Clear(ctx)
	assert.Nil(t, t1.stored())
	assert.Nil(t, t2.stored())
}
