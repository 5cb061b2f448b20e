package progression

import (
	"context"
	"errors"
	"sort"

	"dodje/logger"
)

// Action says what a directive asks the coordinator to do.
type Action string

const (
	ActionUnlock   Action = "unlock"
	ActionComplete Action = "complete"
)

// Directive is one consequence of a completion.
type Directive struct {
	Action     Action
	Kind       Kind
	EntityID   string
	ParcoursID string
	Domain     string
}

// Status is the status the directive writes.
func (d Directive) Status() Status {
	if d.Action == ActionComplete {
		return StatusCompleted
	}
	return StatusUnblocked
}

func (d Directive) key() string {
	return string(d.Action) + ":" + string(d.Kind) + ":" + d.EntityID
}

// UnlockResolver is the single place that knows what a completion unlocks.
type UnlockResolver struct {
	catalog CatalogRepository
	store   StatusStore
	log     *logger.Logger
}

func NewUnlockResolver(catalog CatalogRepository, store StatusStore, baseLog *logger.Logger) *UnlockResolver {
	return &UnlockResolver{
		catalog: catalog,
		store:   store,
		log:     baseLog.With("service", "UnlockResolver"),
	}
}

// ResolveNext lists what the completion of (kind, id) unlocks for userID.
// Catalog defects are logged and resolve to fewer directives; only store
// failures are returned.
func (r *UnlockResolver) ResolveNext(ctx context.Context, userID string, kind Kind, id string) ([]Directive, error) {
	switch kind {
	case KindVideo:
		return r.afterVideo(ctx, userID, id)
	case KindQuiz:
		return r.afterQuiz(ctx, id)
	case KindParcours:
		p, err := r.parcours(ctx, id)
		if err != nil || p == nil {
			return nil, err
		}
		return r.nextParcours(ctx, p)
	default:
		return nil, invalid("kind", "unknown entity kind "+string(kind))
	}
}

func (r *UnlockResolver) afterVideo(ctx context.Context, userID, videoID string) ([]Directive, error) {
	video, err := r.catalog.GetVideo(ctx, videoID)
	if err != nil {
		return nil, r.catalogErr(err, KindVideo, videoID)
	}
	p, err := r.parcours(ctx, video.ParcoursID)
	if err != nil || p == nil {
		return nil, err
	}
	videos, err := r.catalog.ListVideosByParcours(ctx, p.ID)
	if err != nil {
		return nil, r.catalogErr(err, KindParcours, p.ID)
	}

	idx := -1
	for i, v := range videos {
		if v.ID == videoID {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.inconsistent(KindVideo, videoID, "video not listed in its parcours")
		return nil, nil
	}

	var out []Directive
	if idx+1 < len(videos) {
		next := videos[idx+1]
		out = append(out, Directive{Action: ActionUnlock, Kind: KindVideo, EntityID: next.ID, ParcoursID: p.ID})
	}

	// Quiz opens once every video is completed, in whatever order they landed.
	ready, err := r.allVideosCompleted(ctx, userID, p.ID, videos)
	if err != nil {
		return nil, err
	}
	if ready {
		if p.QuizID == "" {
			r.inconsistent(KindParcours, p.ID, "parcours has no quiz")
		} else {
			out = append(out, Directive{Action: ActionUnlock, Kind: KindQuiz, EntityID: p.QuizID, ParcoursID: p.ID})
		}
	}
	return out, nil
}

func (r *UnlockResolver) allVideosCompleted(ctx context.Context, userID, parcoursID string, videos []CatalogVideo) (bool, error) {
	if len(videos) == 0 {
		return true, nil
	}
	records, err := r.store.QueryByField(ctx, userID, KindVideo, FieldParcoursID, parcoursID)
	if err != nil {
		return false, persistence("query video statuses", err)
	}
	done := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Status == StatusCompleted {
			done[rec.EntityID] = true
		}
	}
	for _, v := range videos {
		if !done[v.ID] {
			return false, nil
		}
	}
	return true, nil
}

func (r *UnlockResolver) afterQuiz(ctx context.Context, quizID string) ([]Directive, error) {
	quiz, err := r.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, r.catalogErr(err, KindQuiz, quizID)
	}
	p, err := r.parcours(ctx, quiz.ParcoursID)
	if err != nil || p == nil {
		return nil, err
	}
	out := []Directive{{Action: ActionComplete, Kind: KindParcours, EntityID: p.ID, Domain: p.Domain}}
	next, err := r.nextParcours(ctx, p)
	if err != nil {
		return nil, err
	}
	return append(out, next...), nil
}

// nextParcours unlocks the parcours with the smallest order greater than p's
// in the same (domain, level) group, and that parcours' first video.
func (r *UnlockResolver) nextParcours(ctx context.Context, p *CatalogParcours) ([]Directive, error) {
	group, err := r.catalog.ListParcoursByGroup(ctx, p.Domain, p.Level)
	if err != nil {
		return nil, r.catalogErr(err, KindParcours, p.ID)
	}

	var candidates []CatalogParcours
	for _, c := range group {
		if c.ID == p.ID || c.Order <= p.Order {
			continue
		}
		if len(candidates) == 0 || c.Order < candidates[0].Order {
			candidates = []CatalogParcours{c}
		} else if c.Order == candidates[0].Order {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if len(candidates) > 1 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
		r.inconsistent(KindParcours, candidates[0].ID, "several parcours share the next order in group "+p.Domain+"/"+p.Level)
	}
	next := candidates[0]

	out := []Directive{{Action: ActionUnlock, Kind: KindParcours, EntityID: next.ID, Domain: next.Domain}}
	first, err := r.firstVideo(ctx, next)
	if err != nil {
		return nil, err
	}
	switch {
	case first != "":
		out = append(out, Directive{Action: ActionUnlock, Kind: KindVideo, EntityID: first, ParcoursID: next.ID})
	case next.QuizID != "":
		// No videos: the quiz gate is already satisfied.
		out = append(out, Directive{Action: ActionUnlock, Kind: KindQuiz, EntityID: next.QuizID, ParcoursID: next.ID})
	}
	return out, nil
}

func (r *UnlockResolver) firstVideo(ctx context.Context, p CatalogParcours) (string, error) {
	videos, err := r.catalog.ListVideosByParcours(ctx, p.ID)
	if err != nil {
		return "", r.catalogErr(err, KindParcours, p.ID)
	}
	if len(videos) == 0 {
		r.inconsistent(KindParcours, p.ID, "parcours has no videos")
		return "", nil
	}
	return videos[0].ID, nil
}

// parcours returns nil without error when the catalog does not know id.
func (r *UnlockResolver) parcours(ctx context.Context, id string) (*CatalogParcours, error) {
	p, err := r.catalog.GetParcours(ctx, id)
	if err != nil {
		return nil, r.catalogErr(err, KindParcours, id)
	}
	return p, nil
}

// catalogErr swallows not-found lookups as catalog defects and surfaces
// anything else as a persistence failure.
func (r *UnlockResolver) catalogErr(err error, kind Kind, id string) error {
	if errors.Is(err, ErrNotFound) {
		r.inconsistent(kind, id, "missing from catalog")
		return nil
	}
	return persistence("read catalog", err)
}

func (r *UnlockResolver) inconsistent(kind Kind, id, reason string) {
	e := &CatalogInconsistencyError{Entity: kind, ID: id, Reason: reason}
	r.log.Warn("catalog inconsistency", "kind", kind, "id", id, "error", e.Error())
}
