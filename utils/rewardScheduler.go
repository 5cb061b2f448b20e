package utils

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"dodje/logger"
	"dodje/progression"
)

// reconcileBatch caps how many pending rewards one run pays.
const reconcileBatch = 500

// RewardScheduler periodically pays parcours rewards whose completion was
// recorded but whose grant failed.
type RewardScheduler struct {
	cron    *cron.Cron
	ledger  *progression.RewardLedger
	pending progression.PendingRewardSource
	amount  int64
	log     *logger.Logger

	mu      sync.Mutex
	running bool
}

func NewRewardScheduler(ledger *progression.RewardLedger, pending progression.PendingRewardSource, amount int64, baseLog *logger.Logger) *RewardScheduler {
	return &RewardScheduler{
		cron:    cron.New(),
		ledger:  ledger,
		pending: pending,
		amount:  amount,
		log:     baseLog.With("service", "RewardScheduler"),
	}
}

// Start registers the job on schedule (standard five-field cron) and starts the
// scheduler.
func (s *RewardScheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return errors.Wrapf(err, "invalid reward reconcile schedule %q", schedule)
	}
	s.cron.Start()
	s.log.Info("Reward reconciliation scheduler started", "schedule", schedule)
	return nil
}

// Stop waits for a running job to finish.
func (s *RewardScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce pays one batch. Overlapping runs are skipped.
func (s *RewardScheduler) RunOnce(ctx context.Context) int {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("Previous reconciliation still running, skipping")
		return 0
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	granted, err := s.ledger.Reconcile(ctx, s.pending, s.amount, reconcileBatch)
	if err != nil {
		s.log.Error("Reward reconciliation failed", "error", err)
		return 0
	}
	return granted
}
