package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dodje/progression"
)

// Catalog is an in-memory progression.CatalogRepository.
type Catalog struct {
	mu       sync.RWMutex
	parcours map[string]progression.CatalogParcours
	videos   map[string]progression.CatalogVideo
	quizzes  map[string]progression.CatalogQuiz
}

func NewCatalog() *Catalog {
	return &Catalog{
		parcours: make(map[string]progression.CatalogParcours),
		videos:   make(map[string]progression.CatalogVideo),
		quizzes:  make(map[string]progression.CatalogQuiz),
	}
}

// AddParcours registers p together with its videos and quiz. Video orders
// follow p.VideoIDs when the given videos don't carry one.
func (c *Catalog) AddParcours(p progression.CatalogParcours, videos []progression.CatalogVideo, quiz *progression.CatalogQuiz) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.VideoIDs = nil
	for i, v := range videos {
		v.ParcoursID = p.ID
		if v.Order == 0 {
			v.Order = i + 1
		}
		c.videos[v.ID] = v
		p.VideoIDs = append(p.VideoIDs, v.ID)
	}
	if quiz != nil {
		q := *quiz
		q.ParcoursID = p.ID
		if q.PassingScore == 0 {
			q.PassingScore = progression.QuizPassingScore
		}
		c.quizzes[q.ID] = q
		p.QuizID = q.ID
	}
	c.parcours[p.ID] = p
}

func (c *Catalog) GetParcours(_ context.Context, id string) (*progression.CatalogParcours, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.parcours[id]
	if !ok {
		return nil, fmt.Errorf("parcours %q: %w", id, progression.ErrNotFound)
	}
	return &p, nil
}

func (c *Catalog) ListParcoursByGroup(_ context.Context, domain, level string) ([]progression.CatalogParcours, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []progression.CatalogParcours
	for _, p := range c.parcours {
		if p.Domain == domain && p.Level == level {
			out = append(out, p)
		}
	}
	sortParcours(out)
	return out, nil
}

func (c *Catalog) ListAllParcours(_ context.Context) ([]progression.CatalogParcours, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]progression.CatalogParcours, 0, len(c.parcours))
	for _, p := range c.parcours {
		out = append(out, p)
	}
	sortParcours(out)
	return out, nil
}

func (c *Catalog) GetVideo(_ context.Context, id string) (*progression.CatalogVideo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %q: %w", id, progression.ErrNotFound)
	}
	return &v, nil
}

func (c *Catalog) ListVideosByParcours(_ context.Context, parcoursID string) ([]progression.CatalogVideo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []progression.CatalogVideo
	for _, v := range c.videos {
		if v.ParcoursID == parcoursID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Catalog) GetQuiz(_ context.Context, id string) (*progression.CatalogQuiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quizzes[id]
	if !ok {
		return nil, fmt.Errorf("quiz %q: %w", id, progression.ErrNotFound)
	}
	return &q, nil
}

func sortParcours(ps []progression.CatalogParcours) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Domain != ps[j].Domain {
			return ps[i].Domain < ps[j].Domain
		}
		if ps[i].Level != ps[j].Level {
			return ps[i].Level < ps[j].Level
		}
		if ps[i].Order != ps[j].Order {
			return ps[i].Order < ps[j].Order
		}
		return ps[i].ID < ps[j].ID
	})
}
