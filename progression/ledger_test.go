package progression_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dodje/logger"
	"dodje/progression"
	"dodje/store/memstore"
)

func TestRewardIDForParcours(t *testing.T) {
	assert.Equal(t, "parcours_completion_A", progression.RewardIDForParcours("A"))
}

func TestGrantIsIdempotent(t *testing.T) {
	store := memstore.New()
	ledger := progression.NewRewardLedger(store, logger.Nop())
	ctx := context.Background()

	ok, err := ledger.Grant(ctx, "u1", "parcours_completion_A", 50)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Grant(ctx, "u1", "parcours_completion_A", 50)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.Grant(ctx, "u2", "parcours_completion_A", 50)
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), b)
}

func TestGrantValidatesInput(t *testing.T) {
	ledger := progression.NewRewardLedger(memstore.New(), logger.Nop())
	ctx := context.Background()

	for _, tc := range []struct {
		user, reward string
		amount       int64
	}{
		{"", "r", 10},
		{"u", " ", 10},
		{"u", "r", 0},
		{"u", "r", -5},
	} {
		_, err := ledger.Grant(ctx, tc.user, tc.reward, tc.amount)
		assert.True(t, progression.IsInvalidInput(err), "%+v", tc)
	}
}

func TestGrantStoreFailures(t *testing.T) {
	store := memstore.New()
	ledger := progression.NewRewardLedger(store, logger.Nop())
	ctx := context.Background()

	store.FailNext("getReward", errors.New("read failed"))
	_, err := ledger.Grant(ctx, "u1", "r1", 10)
	assert.True(t, progression.IsPersistence(err))

	store.FailNext("grantReward", errors.New("write failed"))
	_, err = ledger.Grant(ctx, "u1", "r1", 10)
	assert.True(t, progression.IsPersistence(err))

	b, err := ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, b)

	ok, err := ledger.Grant(ctx, "u1", "r1", 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReconcilePaysMissingRewards(t *testing.T) {
	store := memstore.New()
	ledger := progression.NewRewardLedger(store, logger.Nop())
	ctx := context.Background()

	store.Put(progression.Record{UserID: "u1", Kind: progression.KindParcours, EntityID: "A", Status: progression.StatusCompleted})
	store.Put(progression.Record{UserID: "u1", Kind: progression.KindParcours, EntityID: "B", Status: progression.StatusInProgress})
	store.Put(progression.Record{UserID: "u2", Kind: progression.KindParcours, EntityID: "A", Status: progression.StatusCompleted})
	_, err := ledger.Grant(ctx, "u2", progression.RewardIDForParcours("A"), 100)
	require.NoError(t, err)

	n, err := ledger.Reconcile(ctx, store, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = ledger.Reconcile(ctx, store, 100, 50)
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, u := range []string{"u1", "u2"} {
		b, err := ledger.Balance(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(100), b, u)
	}
}
