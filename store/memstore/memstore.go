// Package memstore keeps statuses, catalog and rewards in process memory. It
// backs the progression tests and local runs without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dodje/progression"
)

type recordKey struct {
	userID string
	kind   progression.Kind
	id     string
}

type rewardKey struct {
	userID   string
	rewardID string
}

// Store implements progression.StatusStore, progression.RewardStore and
// progression.PendingRewardSource.
type Store struct {
	mu       sync.Mutex
	records  map[recordKey]*progression.Record
	rewards  map[rewardKey]progression.RewardRecord
	balances map[string]int64

	// one-shot errors keyed by operation: "get", "upsert", "query",
	// "getReward", "grantReward"
	failNext map[string]error
	writes   int
}

func New() *Store {
	return &Store{
		records:  make(map[recordKey]*progression.Record),
		rewards:  make(map[rewardKey]progression.RewardRecord),
		balances: make(map[string]int64),
		failNext: make(map[string]error),
	}
}

// FailNext makes the next call of op return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = err
}

// Writes counts UpsertMerge calls that changed a record.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Put stores rec verbatim, bypassing the merge rules. Test seeding only.
func (s *Store) Put(rec progression.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := rec.Clone()
	s.records[recordKey{rec.UserID, rec.Kind, rec.EntityID}] = &c
}

func (s *Store) injected(op string) error {
	if err, ok := s.failNext[op]; ok {
		delete(s.failNext, op)
		return err
	}
	return nil
}

func (s *Store) Get(_ context.Context, userID string, kind progression.Kind, id string) (*progression.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("get"); err != nil {
		return nil, err
	}
	rec, ok := s.records[recordKey{userID, kind, id}]
	if !ok {
		return nil, nil
	}
	c := rec.Clone()
	return &c, nil
}

func (s *Store) UpsertMerge(_ context.Context, userID string, kind progression.Kind, id string, m progression.Mutation) (progression.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("upsert"); err != nil {
		return progression.WriteResult{}, err
	}

	k := recordKey{userID, kind, id}
	prev := progression.StatusNone
	rec, ok := s.records[k]
	if ok {
		prev = rec.Status
	} else {
		rec = &progression.Record{UserID: userID, Kind: kind, EntityID: id}
	}
	if progression.ApplyMutation(rec, m) {
		s.records[k] = rec
		s.writes++
	}
	return progression.WriteResult{Previous: prev, Record: rec.Clone()}, nil
}

func (s *Store) QueryByField(_ context.Context, userID string, kind progression.Kind, field progression.Field, value string) ([]progression.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("query"); err != nil {
		return nil, err
	}

	var out []progression.Record
	for k, rec := range s.records {
		if k.userID != userID || k.kind != kind {
			continue
		}
		var v string
		switch field {
		case progression.FieldParcoursID:
			v = rec.ParcoursID
		case progression.FieldStatus:
			v = string(rec.Status)
		case progression.FieldDomain:
			v = rec.Domain
		default:
			return nil, fmt.Errorf("memstore: unsupported field %q", field)
		}
		if v == value {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

func (s *Store) GetReward(_ context.Context, userID, rewardID string) (*progression.RewardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("getReward"); err != nil {
		return nil, err
	}
	r, ok := s.rewards[rewardKey{userID, rewardID}]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) GrantReward(_ context.Context, rec progression.RewardRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("grantReward"); err != nil {
		return false, err
	}
	k := rewardKey{rec.UserID, rec.RewardID}
	if _, ok := s.rewards[k]; ok {
		return false, nil
	}
	s.rewards[k] = rec
	s.balances[rec.UserID] += rec.Amount
	return true, nil
}

func (s *Store) Balance(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *Store) PendingParcoursRewards(_ context.Context, limit int) ([]progression.PendingReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []progression.PendingReward
	for k, rec := range s.records {
		if k.kind != progression.KindParcours || rec.Status != progression.StatusCompleted {
			continue
		}
		if _, ok := s.rewards[rewardKey{k.userID, progression.RewardIDForParcours(k.id)}]; ok {
			continue
		}
		out = append(out, progression.PendingReward{UserID: k.userID, ParcoursID: k.id})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ParcoursID < out[j].ParcoursID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
