package progression

import (
	"context"
	"strings"

	"dodje/logger"
)

const parcoursRewardPrefix = "parcours_completion_"

// RewardIDForParcours is the deterministic reward key of a parcours completion.
func RewardIDForParcours(parcoursID string) string {
	return parcoursRewardPrefix + parcoursID
}

// RewardLedger grants Dodji at most once per (user, reward id).
type RewardLedger struct {
	store RewardStore
	clock Clock
	log   *logger.Logger
}

func NewRewardLedger(store RewardStore, baseLog *logger.Logger) *RewardLedger {
	return &RewardLedger{
		store: store,
		clock: systemClock,
		log:   baseLog.With("service", "RewardLedger"),
	}
}

// WithClock overrides the timestamp source.
func (l *RewardLedger) WithClock(c Clock) *RewardLedger {
	l.clock = c
	return l
}

// Grant pays amount Dodji to userID for rewardID. It returns false, without
// writing, when the reward was already recorded.
func (l *RewardLedger) Grant(ctx context.Context, userID, rewardID string, amount int64) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, invalid("userId", "is required")
	}
	if strings.TrimSpace(rewardID) == "" {
		return false, invalid("rewardId", "is required")
	}
	if amount <= 0 {
		return false, invalid("amount", "must be greater than zero")
	}

	existing, err := l.store.GetReward(ctx, userID, rewardID)
	if err != nil {
		return false, persistence("read reward", err)
	}
	if existing != nil && existing.Granted {
		l.log.Debug("reward already granted", "userId", userID, "rewardId", rewardID)
		return false, nil
	}

	granted, err := l.store.GrantReward(ctx, RewardRecord{
		UserID:    userID,
		RewardID:  rewardID,
		Granted:   true,
		Amount:    amount,
		GrantedAt: l.clock(),
	})
	if err != nil {
		return false, persistence("grant reward", err)
	}
	if granted {
		l.log.Info("reward granted", "userId", userID, "rewardId", rewardID, "amount", amount)
	} else {
		l.log.Debug("reward raced with a concurrent grant", "userId", userID, "rewardId", rewardID)
	}
	return granted, nil
}

// Balance returns the user's Dodji balance.
func (l *RewardLedger) Balance(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, invalid("userId", "is required")
	}
	b, err := l.store.Balance(ctx, userID)
	if err != nil {
		return 0, persistence("read balance", err)
	}
	return b, nil
}

// Reconcile grants the parcours rewards that a completion recorded but failed
// to pay. It returns how many rewards were granted.
func (l *RewardLedger) Reconcile(ctx context.Context, src PendingRewardSource, amount int64, limit int) (int, error) {
	pending, err := src.PendingParcoursRewards(ctx, limit)
	if err != nil {
		return 0, persistence("list pending rewards", err)
	}
	granted := 0
	for _, p := range pending {
		ok, err := l.Grant(ctx, p.UserID, RewardIDForParcours(p.ParcoursID), amount)
		if err != nil {
			l.log.Warn("reconcile grant failed", "userId", p.UserID, "parcoursId", p.ParcoursID, "error", err)
			continue
		}
		if ok {
			granted++
		}
	}
	if len(pending) > 0 {
		l.log.Info("reward reconciliation finished", "pending", len(pending), "granted", granted)
	}
	return granted, nil
}
