package gormstore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dodje/progression"
	"dodje/store/gormstore"
)

type stack struct {
	statuses    *gormstore.StatusRepo
	rewards     *gormstore.RewardRepo
	ledger      *progression.RewardLedger
	coordinator *progression.Coordinator
	seeder      *progression.InitializationService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := openDB(t)
	log := nopLog()
	catalog := gormstore.NewCatalogRepo(db, log)
	seedBourse(t, catalog)

	statuses := gormstore.NewStatusRepo(db, log)
	rewards := gormstore.NewRewardRepo(db, log)
	resolver := progression.NewUnlockResolver(catalog, statuses, log)
	ledger := progression.NewRewardLedger(rewards, log)
	s := &stack{
		statuses:    statuses,
		rewards:     rewards,
		ledger:      ledger,
		coordinator: progression.NewCoordinator(catalog, statuses, resolver, ledger, log, progression.Options{RewardAmount: 100}),
		seeder:      progression.NewInitializationService(catalog, statuses, log),
	}
	require.NoError(t, s.seeder.InitializeUser(context.Background(), "u1"))
	return s
}

func (s *stack) status(t *testing.T, kind progression.Kind, id string) progression.Status {
	t.Helper()
	rec, err := s.statuses.Get(context.Background(), "u1", kind, id)
	require.NoError(t, err)
	if rec == nil {
		return progression.StatusNone
	}
	return rec.Status
}

func TestCascadeOverSQL(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	assert.Equal(t, progression.StatusUnblocked, s.status(t, progression.KindParcours, "A"))
	assert.Equal(t, progression.StatusBlocked, s.status(t, progression.KindParcours, "B"))
	assert.Equal(t, progression.StatusUnblocked, s.status(t, progression.KindVideo, "VX"))

	for _, v := range []string{"V1", "V2"} {
		_, err := s.coordinator.RecordVideoProgress(ctx, "u1", v, "A", progression.VideoSnapshot{CurrentTime: 95, Duration: 100, SessionID: "s-" + v})
		require.NoError(t, err)
	}
	assert.Equal(t, progression.StatusInProgress, s.status(t, progression.KindParcours, "A"))
	assert.Equal(t, progression.StatusUnblocked, s.status(t, progression.KindQuiz, "Q1"))

	rec, err := s.coordinator.RecordQuizAttempt(ctx, "u1", "Q1", "A", progression.QuizResult{AttemptID: "a1", TotalQuestions: 10, CorrectAnswers: 7})
	require.NoError(t, err)
	assert.Equal(t, progression.StatusCompleted, rec.Status)

	assert.Equal(t, progression.StatusCompleted, s.status(t, progression.KindParcours, "A"))
	assert.Equal(t, progression.StatusUnblocked, s.status(t, progression.KindParcours, "B"))
	assert.Equal(t, progression.StatusUnblocked, s.status(t, progression.KindVideo, "V3"))

	b, err := s.ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b)

	// a second seeding leaves everything in place
	require.NoError(t, s.seeder.InitializeUser(ctx, "u1"))
	assert.Equal(t, progression.StatusCompleted, s.status(t, progression.KindParcours, "A"))
	assert.Equal(t, progression.StatusUnblocked, s.status(t, progression.KindVideo, "V3"))
}

func TestConcurrentQuizSubmissionsPayOnceOverSQL(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	for _, v := range []string{"V1", "V2"} {
		_, err := s.coordinator.RecordVideoProgress(ctx, "u1", v, "", progression.VideoSnapshot{CurrentTime: 100, Duration: 100})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.coordinator.RecordQuizAttempt(ctx, "u1", "Q1", "", progression.QuizResult{TotalQuestions: 10, CorrectAnswers: 9})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	b, err := s.ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b)

	rows, total, err := s.rewards.History(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, rows, 1)
}
