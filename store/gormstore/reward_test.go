package gormstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dodje/models"
	"dodje/progression"
	"dodje/store/gormstore"
)

func grant(userID, rewardID string, amount int64) progression.RewardRecord {
	return progression.RewardRecord{UserID: userID, RewardID: rewardID, Granted: true, Amount: amount, GrantedAt: t0}
}

func TestRewardRepoGrantsOnce(t *testing.T) {
	repo := gormstore.NewRewardRepo(openDB(t), nopLog())
	ctx := context.Background()

	ok, err := repo.GrantReward(ctx, grant("u1", "parcours_completion_A", 100))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.GrantReward(ctx, grant("u1", "parcours_completion_A", 100))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.GrantReward(ctx, grant("u1", "parcours_completion_B", 100))
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := repo.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), b)

	rec, err := repo.GetReward(ctx, "u1", "parcours_completion_A")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Granted)
	assert.Equal(t, int64(100), rec.Amount)

	missing, err := repo.GetReward(ctx, "u2", "parcours_completion_A")
	require.NoError(t, err)
	assert.Nil(t, missing)

	zero, err := repo.Balance(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, zero)
}

func TestRewardRepoLogsWalletTransactions(t *testing.T) {
	repo := gormstore.NewRewardRepo(openDB(t), nopLog())
	ctx := context.Background()

	for _, id := range []string{"parcours_completion_A", "parcours_completion_B"} {
		_, err := repo.GrantReward(ctx, grant("u1", id, 100))
		require.NoError(t, err)
	}

	rows, total, err := repo.History(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	newest := rows[0]
	assert.Equal(t, models.TransactionTypeReward, newest.TransactionType)
	assert.Equal(t, "parcours", newest.ReferenceType)
	assert.Equal(t, "parcours_completion_B", newest.ReferenceID)
	assert.Equal(t, int64(100), newest.BalanceBefore)
	assert.Equal(t, int64(200), newest.BalanceAfter)
	assert.Equal(t, "Parcours B completed", newest.Description)
	assert.Len(t, newest.Reference, 36)

	page, total, err := repo.History(ctx, "u1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, "parcours_completion_A", page[0].ReferenceID)
}

func TestRewardRepoConcurrentGrants(t *testing.T) {
	repo := gormstore.NewRewardRepo(openDB(t), nopLog())
	ctx := context.Background()

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.GrantReward(ctx, grant("u1", "parcours_completion_A", 100))
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	b, err := repo.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b)
}

func TestPendingParcoursRewards(t *testing.T) {
	db := openDB(t)
	statuses := gormstore.NewStatusRepo(db, nopLog())
	rewards := gormstore.NewRewardRepo(db, nopLog())
	ctx := context.Background()

	set := func(userID, parcoursID string, status progression.Status, at time.Time) {
		_, err := statuses.UpsertMerge(ctx, userID, progression.KindParcours, parcoursID, progression.Mutation{Status: status, At: at})
		require.NoError(t, err)
	}
	set("u1", "A", progression.StatusCompleted, t0)
	set("u1", "B", progression.StatusInProgress, t0)
	set("u2", "A", progression.StatusCompleted, t0.Add(time.Minute))
	set("u3", "A", progression.StatusCompleted, t0.Add(2*time.Minute))
	_, err := rewards.GrantReward(ctx, grant("u2", progression.RewardIDForParcours("A"), 100))
	require.NoError(t, err)

	pending, err := rewards.PendingParcoursRewards(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []progression.PendingReward{
		{UserID: "u1", ParcoursID: "A"},
		{UserID: "u3", ParcoursID: "A"},
	}, pending)

	first, err := rewards.PendingParcoursRewards(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []progression.PendingReward{{UserID: "u1", ParcoursID: "A"}}, first)
}
