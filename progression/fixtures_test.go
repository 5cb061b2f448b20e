package progression_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dodje/logger"
	"dodje/progression"
	"dodje/store/memstore"
)

const (
	testUser   = "user-1"
	testReward = int64(100)
)

// tickingClock returns strictly increasing timestamps.
func tickingClock() progression.Clock {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	var n int64
	return func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&n, 1)) * time.Second)
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []progression.StatusEvent
}

func (r *recordingNotifier) Publish(_ context.Context, ev progression.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) find(kind progression.Kind, id string, status progression.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Kind == kind && ev.EntityID == id && ev.Status == status {
			return true
		}
	}
	return false
}

type harness struct {
	catalog     *memstore.Catalog
	store       *memstore.Store
	resolver    *progression.UnlockResolver
	ledger      *progression.RewardLedger
	coordinator *progression.Coordinator
	seeder      *progression.InitializationService
	notifier    *recordingNotifier
}

// bourseCatalog is the "Bourse / debutant" group:
//
//	A (order 1): V1, V2, Q1
//	B (order 2): V3, Q2
//	C (order 3): V4, Q3
//
// plus a single-parcours "Crypto / debutant" group X: VX, QX.
func bourseCatalog() *memstore.Catalog {
	c := memstore.NewCatalog()
	c.AddParcours(
		progression.CatalogParcours{ID: "A", Domain: "Bourse", Level: "debutant", Order: 1},
		[]progression.CatalogVideo{{ID: "V1", Duration: 100}, {ID: "V2", Duration: 100}},
		&progression.CatalogQuiz{ID: "Q1"},
	)
	c.AddParcours(
		progression.CatalogParcours{ID: "B", Domain: "Bourse", Level: "debutant", Order: 2},
		[]progression.CatalogVideo{{ID: "V3", Duration: 60}},
		&progression.CatalogQuiz{ID: "Q2"},
	)
	c.AddParcours(
		progression.CatalogParcours{ID: "C", Domain: "Bourse", Level: "debutant", Order: 3},
		[]progression.CatalogVideo{{ID: "V4", Duration: 60}},
		&progression.CatalogQuiz{ID: "Q3"},
	)
	c.AddParcours(
		progression.CatalogParcours{ID: "X", Domain: "Crypto", Level: "debutant", Order: 1},
		[]progression.CatalogVideo{{ID: "VX", Duration: 30}},
		&progression.CatalogQuiz{ID: "QX"},
	)
	return c
}

func newHarness(t *testing.T, catalog *memstore.Catalog) *harness {
	t.Helper()
	log := logger.Nop()
	clock := tickingClock()
	store := memstore.New()
	notifier := &recordingNotifier{}
	resolver := progression.NewUnlockResolver(catalog, store, log)
	ledger := progression.NewRewardLedger(store, log).WithClock(clock)
	return &harness{
		catalog:  catalog,
		store:    store,
		resolver: resolver,
		ledger:   ledger,
		coordinator: progression.NewCoordinator(catalog, store, resolver, ledger, log, progression.Options{
			RewardAmount: testReward,
			Notifier:     notifier,
			Clock:        clock,
		}),
		seeder:   progression.NewInitializationService(catalog, store, log).WithClock(clock),
		notifier: notifier,
	}
}

func (h *harness) initialized(t *testing.T) *harness {
	t.Helper()
	require.NoError(t, h.seeder.InitializeUser(context.Background(), testUser))
	return h
}

func (h *harness) status(t *testing.T, kind progression.Kind, id string) progression.Status {
	t.Helper()
	rec, err := h.store.Get(context.Background(), testUser, kind, id)
	require.NoError(t, err)
	if rec == nil {
		return progression.StatusNone
	}
	return rec.Status
}

func (h *harness) watch(t *testing.T, videoID string, current, duration float64) *progression.Record {
	t.Helper()
	rec, err := h.coordinator.RecordVideoProgress(context.Background(), testUser, videoID, "", progression.VideoSnapshot{
		CurrentTime: current,
		Duration:    duration,
	})
	require.NoError(t, err)
	return rec
}

func (h *harness) answer(t *testing.T, quizID string, correct, total int) *progression.Record {
	t.Helper()
	rec, err := h.coordinator.RecordQuizAttempt(context.Background(), testUser, quizID, "", progression.QuizResult{
		TotalQuestions:   total,
		CorrectAnswers:   correct,
		TimeSpentSeconds: 42,
	})
	require.NoError(t, err)
	return rec
}

func (h *harness) balance(t *testing.T) int64 {
	t.Helper()
	b, err := h.ledger.Balance(context.Background(), testUser)
	require.NoError(t, err)
	return b
}
