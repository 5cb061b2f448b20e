package progression

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"dodje/logger"
)

// InitializationService seeds a user's status records from the catalog.
type InitializationService struct {
	catalog     CatalogRepository
	store       StatusStore
	clock       Clock
	concurrency int
	log         *logger.Logger
}

func NewInitializationService(catalog CatalogRepository, store StatusStore, baseLog *logger.Logger) *InitializationService {
	return &InitializationService{
		catalog:     catalog,
		store:       store,
		clock:       systemClock,
		concurrency: 4,
		log:         baseLog.With("service", "InitializationService"),
	}
}

// WithClock overrides the timestamp source.
func (s *InitializationService) WithClock(c Clock) *InitializationService {
	s.clock = c
	return s
}

type groupKey struct {
	domain string
	level  string
}

// InitializeUser unblocks the first parcours of every (domain, level) group
// and its first video; everything else is written blocked. Re-running it never
// lowers a status the user already reached.
func (s *InitializationService) InitializeUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("userId", "is required")
	}
	all, err := s.catalog.ListAllParcours(ctx)
	if err != nil {
		return persistence("list catalog parcours", err)
	}

	groups := make(map[groupKey][]CatalogParcours)
	for _, p := range all {
		k := groupKey{domain: p.Domain, level: p.Level}
		groups[k] = append(groups[k], p)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for k, members := range groups {
		k, members := k, members
		g.Go(func() error {
			return s.seedGroup(gctx, userID, k, members)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info("user progression initialized", "userId", userID, "groups", len(groups), "parcours", len(all))
	return nil
}

func (s *InitializationService) seedGroup(ctx context.Context, userID string, k groupKey, members []CatalogParcours) error {
	sort.Slice(members, func(i, j int) bool {
		if members[i].Order != members[j].Order {
			return members[i].Order < members[j].Order
		}
		return members[i].ID < members[j].ID
	})
	if len(members) > 1 && members[0].Order == members[1].Order {
		s.log.Warn("catalog inconsistency", "error", (&CatalogInconsistencyError{
			Entity: KindParcours, ID: members[0].ID,
			Reason: "several parcours share the lowest order in group " + k.domain + "/" + k.level,
		}).Error())
	}

	for i, p := range members {
		open := i == 0
		status := StatusBlocked
		if open {
			status = StatusUnblocked
		}
		if err := s.write(ctx, userID, KindParcours, p.ID, Mutation{Domain: p.Domain, Status: status}); err != nil {
			return err
		}

		videos, err := s.catalog.ListVideosByParcours(ctx, p.ID)
		if err != nil {
			return persistence("list catalog videos", err)
		}
		for j, v := range videos {
			vs := StatusBlocked
			if open && j == 0 {
				vs = StatusUnblocked
			}
			if err := s.write(ctx, userID, KindVideo, v.ID, Mutation{ParcoursID: p.ID, Status: vs}); err != nil {
				return err
			}
		}
		if len(videos) == 0 {
			s.log.Warn("catalog inconsistency", "error", (&CatalogInconsistencyError{
				Entity: KindParcours, ID: p.ID, Reason: "parcours has no videos",
			}).Error())
		}
		if p.QuizID != "" {
			qs := StatusBlocked
			if len(videos) == 0 {
				reached, err := s.reached(ctx, userID, p.ID, open)
				if err != nil {
					return err
				}
				if reached {
					qs = StatusUnblocked
				}
			}
			if err := s.write(ctx, userID, KindQuiz, p.QuizID, Mutation{ParcoursID: p.ID, Status: qs}); err != nil {
				return err
			}
		}
	}
	return nil
}

// reached reports whether the user may already work on parcours id.
func (s *InitializationService) reached(ctx context.Context, userID, id string, open bool) (bool, error) {
	if open {
		return true, nil
	}
	rec, err := s.store.Get(ctx, userID, KindParcours, id)
	if err != nil {
		return false, persistence("read parcours status", err)
	}
	return rec != nil && rec.Status.Available(), nil
}

func (s *InitializationService) write(ctx context.Context, userID string, kind Kind, id string, m Mutation) error {
	m.At = s.clock()
	if _, err := s.store.UpsertMerge(ctx, userID, kind, id, m); err != nil {
		return persistence("seed "+string(kind)+" status", err)
	}
	return nil
}
