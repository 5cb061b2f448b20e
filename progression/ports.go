package progression

import (
	"context"
	"time"
)

// StatusStore is the per-user status document store.
//
// UpsertMerge must be atomic with respect to the read of the previous status:
// two concurrent writers moving the same record into completed must observe
// different Previous values. Implementations apply ApplyMutation semantics.
type StatusStore interface {
	Get(ctx context.Context, userID string, kind Kind, id string) (*Record, error)
	UpsertMerge(ctx context.Context, userID string, kind Kind, id string, m Mutation) (WriteResult, error)
	QueryByField(ctx context.Context, userID string, kind Kind, field Field, value string) ([]Record, error)
}

// CatalogParcours is a course unit of the global catalog.
type CatalogParcours struct {
	ID       string
	Domain   string
	Level    string
	Order    int
	VideoIDs []string
	QuizID   string
}

// CatalogVideo belongs to exactly one parcours.
type CatalogVideo struct {
	ID         string
	ParcoursID string
	Order      int
	Duration   float64
}

// CatalogQuiz closes a parcours.
type CatalogQuiz struct {
	ID           string
	ParcoursID   string
	PassingScore float64
}

// CatalogRepository is read-only access to the global catalog. Lookups of
// unknown ids return an error wrapping ErrNotFound. List methods return rows
// sorted by order, ties by id.
type CatalogRepository interface {
	GetParcours(ctx context.Context, id string) (*CatalogParcours, error)
	ListParcoursByGroup(ctx context.Context, domain, level string) ([]CatalogParcours, error)
	ListAllParcours(ctx context.Context) ([]CatalogParcours, error)
	GetVideo(ctx context.Context, id string) (*CatalogVideo, error)
	ListVideosByParcours(ctx context.Context, parcoursID string) ([]CatalogVideo, error)
	GetQuiz(ctx context.Context, id string) (*CatalogQuiz, error)
}

// RewardRecord is the single source of truth for "has this reward been paid".
type RewardRecord struct {
	UserID    string    `json:"userId"`
	RewardID  string    `json:"rewardId"`
	Granted   bool      `json:"granted"`
	Amount    int64     `json:"amount"`
	GrantedAt time.Time `json:"grantedAt"`
}

// RewardStore persists reward records and the Dodji balance.
//
// GrantReward writes the record and bumps the balance. It returns false without
// touching the balance when a record for (UserID, RewardID) already exists.
// Implementations should make both writes atomic; when they can't, the record
// must be written before the balance so a crash leaves at most a missing bump.
type RewardStore interface {
	GetReward(ctx context.Context, userID, rewardID string) (*RewardRecord, error)
	GrantReward(ctx context.Context, rec RewardRecord) (bool, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

// PendingReward is a completed parcours whose reward has not been recorded.
type PendingReward struct {
	UserID     string
	ParcoursID string
}

// PendingRewardSource lists completions lacking a reward record.
type PendingRewardSource interface {
	PendingParcoursRewards(ctx context.Context, limit int) ([]PendingReward, error)
}

// StatusEvent is published whenever a status record changes.
type StatusEvent struct {
	UserID     string    `json:"userId"`
	Kind       Kind      `json:"kind"`
	EntityID   string    `json:"entityId"`
	ParcoursID string    `json:"parcoursId,omitempty"`
	Previous   Status    `json:"previous"`
	Status     Status    `json:"status"`
	At         time.Time `json:"at"`
}

// Notifier fans status changes out to interested clients. Delivery is best
// effort.
type Notifier interface {
	Publish(ctx context.Context, ev StatusEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, StatusEvent) error { return nil }

// NopNotifier drops every event.
var NopNotifier Notifier = nopNotifier{}

// Clock is injected so tests can control timestamps.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
