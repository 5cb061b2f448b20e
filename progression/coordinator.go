package progression

import (
	"context"
	"errors"
	"strings"
	"time"

	"dodje/logger"
)

// VideoSnapshot is one playback progress tick from the player.
type VideoSnapshot struct {
	CurrentTime float64
	// Duration falls back to the catalog duration when zero.
	Duration   float64
	SessionID  string
	RecordedAt time.Time
}

// QuizResult is one graded quiz submission.
type QuizResult struct {
	// AttemptID makes resubmissions of the same attempt idempotent. Optional.
	AttemptID        string
	TotalQuestions   int
	CorrectAnswers   int
	Answers          []QuestionAnswer
	TimeSpentSeconds float64
	SubmittedAt      time.Time
}

// Options tunes a Coordinator.
type Options struct {
	// RewardAmount is the Dodji paid per completed parcours.
	RewardAmount int64
	Notifier     Notifier
	Clock        Clock
}

// Coordinator reacts to user activity: it updates the entity's own status,
// drives the unlock cascade and pays parcours rewards.
type Coordinator struct {
	catalog  CatalogRepository
	store    StatusStore
	resolver *UnlockResolver
	ledger   *RewardLedger
	notifier Notifier
	reward   int64
	clock    Clock
	log      *logger.Logger
}

func NewCoordinator(catalog CatalogRepository, store StatusStore, resolver *UnlockResolver, ledger *RewardLedger, baseLog *logger.Logger, opts Options) *Coordinator {
	c := &Coordinator{
		catalog:  catalog,
		store:    store,
		resolver: resolver,
		ledger:   ledger,
		notifier: opts.Notifier,
		reward:   opts.RewardAmount,
		clock:    opts.Clock,
		log:      baseLog.With("service", "ProgressionCoordinator"),
	}
	if c.notifier == nil {
		c.notifier = NopNotifier
	}
	if c.clock == nil {
		c.clock = systemClock
	}
	return c
}

// RecordVideoProgress stores a playback tick and, once the video is watched
// past the completion threshold, cascades the completion.
func (c *Coordinator) RecordVideoProgress(ctx context.Context, userID, videoID, parcoursID string, snap VideoSnapshot) (*Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId", "is required")
	}
	if strings.TrimSpace(videoID) == "" {
		return nil, invalid("videoId", "is required")
	}

	video, err := c.catalog.GetVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("videoId", "unknown video")
		}
		return nil, persistence("read catalog video", err)
	}
	if parcoursID == "" {
		parcoursID = video.ParcoursID
	} else if parcoursID != video.ParcoursID {
		return nil, invalid("parcoursId", "video does not belong to this parcours")
	}

	duration := snap.Duration
	if duration <= 0 {
		duration = video.Duration
	}
	pct, err := VideoPercentage(snap.CurrentTime, duration)
	if err != nil {
		return nil, err
	}

	current, err := c.store.Get(ctx, userID, KindVideo, videoID)
	if err != nil {
		return nil, persistence("read video status", err)
	}
	if current == nil || !current.Status.Available() {
		return nil, invalid("videoId", "video is blocked")
	}

	now := c.clock()
	recordedAt := snap.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}
	completing := VideoCompletion(pct)
	target := current.Status
	if completing {
		target = StatusCompleted
	}

	m := Mutation{
		ParcoursID: parcoursID,
		Status:     target,
		Video: &VideoProgress{
			CurrentTime: snap.CurrentTime,
			Duration:    duration,
			Percentage:  pct,
			RecordedAt:  recordedAt,
		},
		At: now,
	}
	if snap.SessionID != "" {
		m.Session = &WatchSession{
			ID:            snap.SessionID,
			StartPosition: snap.CurrentTime,
			EndPosition:   snap.CurrentTime,
			StartedAt:     recordedAt,
			LastSeenAt:    recordedAt,
		}
	}

	res, err := c.store.UpsertMerge(ctx, userID, KindVideo, videoID, m)
	if err != nil {
		return nil, persistence("write video status", err)
	}
	c.publish(ctx, res)

	if err := c.startParcours(ctx, userID, parcoursID); err != nil {
		return nil, err
	}

	if completing && res.Record.Status == StatusCompleted {
		if !res.Transitioned(StatusCompleted) {
			c.log.Debug("re-driving completed video", "userId", userID, "videoId", videoID)
		}
		if err := c.cascade(ctx, userID, KindVideo, videoID); err != nil {
			return nil, err
		}
	}
	rec := res.Record
	return &rec, nil
}

// RecordQuizAttempt appends a graded attempt and, when it passes, completes the
// quiz and its parcours.
func (c *Coordinator) RecordQuizAttempt(ctx context.Context, userID, quizID, parcoursID string, result QuizResult) (*Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("userId", "is required")
	}
	if strings.TrimSpace(quizID) == "" {
		return nil, invalid("quizId", "is required")
	}
	if _, err := QuizCompletion(result.CorrectAnswers, result.TotalQuestions); err != nil {
		return nil, err
	}
	if result.TimeSpentSeconds < 0 {
		return nil, invalid("timeSpentSeconds", "must not be negative")
	}
	if len(result.Answers) > result.TotalQuestions {
		return nil, invalid("answers", "more answers than questions")
	}

	quiz, err := c.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("quizId", "unknown quiz")
		}
		return nil, persistence("read catalog quiz", err)
	}
	if parcoursID == "" {
		parcoursID = quiz.ParcoursID
	} else if parcoursID != quiz.ParcoursID {
		return nil, invalid("parcoursId", "quiz does not belong to this parcours")
	}
	score, err := QuizCompletionAt(result.CorrectAnswers, result.TotalQuestions, quiz.PassingScore)
	if err != nil {
		return nil, err
	}

	current, err := c.store.Get(ctx, userID, KindQuiz, quizID)
	if err != nil {
		return nil, persistence("read quiz status", err)
	}
	if current == nil || !current.Status.Available() {
		return nil, invalid("quizId", "quiz is blocked")
	}

	now := c.clock()
	submittedAt := result.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = now
	}
	target := current.Status
	if score.Passed {
		target = StatusCompleted
	}

	res, err := c.store.UpsertMerge(ctx, userID, KindQuiz, quizID, Mutation{
		ParcoursID: parcoursID,
		Status:     target,
		Attempt: &QuizAttempt{
			ID:              result.AttemptID,
			SubmittedAt:     submittedAt,
			TotalQuestions:  result.TotalQuestions,
			CorrectAnswers:  result.CorrectAnswers,
			ScorePercentage: score.ScorePercentage,
			Passed:          score.Passed,
			Duration:        time.Duration(result.TimeSpentSeconds * float64(time.Second)),
			Answers:         result.Answers,
		},
		At: now,
	})
	if err != nil {
		return nil, persistence("write quiz status", err)
	}
	c.publish(ctx, res)

	if score.Passed && res.Record.Status == StatusCompleted {
		if err := c.cascade(ctx, userID, KindQuiz, quizID); err != nil {
			return nil, err
		}
	}
	rec := res.Record
	return &rec, nil
}

// Status returns the user's record for an entity. Entities never written for
// the user read as blocked.
func (c *Coordinator) Status(ctx context.Context, userID string, kind Kind, id string) (*Record, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "unknown entity kind")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(id) == "" {
		return nil, invalid("id", "is required")
	}
	rec, err := c.store.Get(ctx, userID, kind, id)
	if err != nil {
		return nil, persistence("read status", err)
	}
	if rec == nil {
		return &Record{UserID: userID, Kind: kind, EntityID: id, Status: StatusBlocked}, nil
	}
	return rec, nil
}

// ListStatuses returns the user's records of kind whose field equals value.
func (c *Coordinator) ListStatuses(ctx context.Context, userID string, kind Kind, field Field, value string) ([]Record, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "unknown entity kind")
	}
	recs, err := c.store.QueryByField(ctx, userID, kind, field, value)
	if err != nil {
		return nil, persistence("query statuses", err)
	}
	return recs, nil
}

// RetryParcoursReward pays the reward of an already completed parcours if it
// is still missing.
func (c *Coordinator) RetryParcoursReward(ctx context.Context, userID, parcoursID string) (bool, error) {
	rec, err := c.store.Get(ctx, userID, KindParcours, parcoursID)
	if err != nil {
		return false, persistence("read parcours status", err)
	}
	if rec == nil || rec.Status != StatusCompleted {
		return false, invalid("parcoursId", "parcours is not completed")
	}
	return c.ledger.Grant(ctx, userID, RewardIDForParcours(parcoursID), c.reward)
}

type cascadeItem struct {
	kind Kind
	id   string
}

// cascade runs the consequences of (kind, id) being completed: resolver
// directives first, then the parcours reward. Every step is idempotent so a
// cascade may be replayed after a partial failure.
func (c *Coordinator) cascade(ctx context.Context, userID string, kind Kind, id string) error {
	seen := make(map[string]bool)
	queue := []cascadeItem{{kind: kind, id: id}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		directives, err := c.resolver.ResolveNext(ctx, userID, item.kind, item.id)
		if err != nil {
			return err
		}
		for _, d := range directives {
			if seen[d.key()] {
				continue
			}
			seen[d.key()] = true

			switch d.Action {
			case ActionUnlock:
				if err := c.unlock(ctx, userID, d); err != nil {
					return err
				}
			case ActionComplete:
				done, err := c.complete(ctx, userID, d)
				if err != nil {
					return err
				}
				if done {
					queue = append(queue, cascadeItem{kind: d.Kind, id: d.EntityID})
				}
			}
		}

		if item.kind == KindParcours {
			c.payParcours(ctx, userID, item.id)
		}
	}
	return nil
}

// unlock raises a blocked (or missing) entity to unblocked. Anything already
// unblocked or further along is left alone.
func (c *Coordinator) unlock(ctx context.Context, userID string, d Directive) error {
	current, err := c.store.Get(ctx, userID, d.Kind, d.EntityID)
	if err != nil {
		return persistence("read status", err)
	}
	prev := StatusNone
	if current != nil {
		prev = current.Status
	}
	if prev.Rank() >= StatusUnblocked.Rank() {
		return nil
	}
	res, err := c.store.UpsertMerge(ctx, userID, d.Kind, d.EntityID, Mutation{
		ParcoursID: d.ParcoursID,
		Domain:     d.Domain,
		Status:     StatusUnblocked,
		At:         c.clock(),
	})
	if err != nil {
		return persistence("unlock "+string(d.Kind), err)
	}
	c.log.Debug("unlocked", "userId", userID, "kind", d.Kind, "id", d.EntityID)
	c.publish(ctx, res)
	return nil
}

// complete moves an entity into completed on behalf of a child completion. It
// reports whether the entity is completed afterwards.
func (c *Coordinator) complete(ctx context.Context, userID string, d Directive) (bool, error) {
	current, err := c.store.Get(ctx, userID, d.Kind, d.EntityID)
	if err != nil {
		return false, persistence("read status", err)
	}
	prev := StatusNone
	if current != nil {
		prev = current.Status
	}
	if prev == StatusCompleted {
		return true, nil
	}
	if !CanTransition(prev, StatusCompleted) {
		c.log.Warn("refusing completion of unavailable entity", "userId", userID, "kind", d.Kind, "id", d.EntityID, "status", prev.String())
		return false, nil
	}
	res, err := c.store.UpsertMerge(ctx, userID, d.Kind, d.EntityID, Mutation{
		ParcoursID: d.ParcoursID,
		Domain:     d.Domain,
		Status:     StatusCompleted,
		At:         c.clock(),
	})
	if err != nil {
		return false, persistence("complete "+string(d.Kind), err)
	}
	c.publish(ctx, res)
	return res.Record.Status == StatusCompleted, nil
}

// startParcours marks an unblocked parcours in_progress on its first activity.
func (c *Coordinator) startParcours(ctx context.Context, userID, parcoursID string) error {
	current, err := c.store.Get(ctx, userID, KindParcours, parcoursID)
	if err != nil {
		return persistence("read parcours status", err)
	}
	if current == nil || current.Status != StatusUnblocked {
		return nil
	}
	res, err := c.store.UpsertMerge(ctx, userID, KindParcours, parcoursID, Mutation{
		Status: StatusInProgress,
		At:     c.clock(),
	})
	if err != nil {
		return persistence("start parcours", err)
	}
	c.publish(ctx, res)
	return nil
}

// payParcours grants the completion reward. Failures are logged only; the
// ledger is idempotent so the grant can be retried on its own.
func (c *Coordinator) payParcours(ctx context.Context, userID, parcoursID string) {
	if c.ledger == nil || c.reward <= 0 {
		return
	}
	if _, err := c.ledger.Grant(ctx, userID, RewardIDForParcours(parcoursID), c.reward); err != nil {
		c.log.Error("parcours reward failed", "userId", userID, "parcoursId", parcoursID, "error", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, res WriteResult) {
	if res.Previous == res.Record.Status {
		return
	}
	ev := StatusEvent{
		UserID:     res.Record.UserID,
		Kind:       res.Record.Kind,
		EntityID:   res.Record.EntityID,
		ParcoursID: res.Record.ParcoursID,
		Previous:   res.Previous,
		Status:     res.Record.Status,
		At:         res.Record.UpdatedAt,
	}
	if err := c.notifier.Publish(ctx, ev); err != nil {
		c.log.Warn("status event publish failed", "userId", ev.UserID, "kind", ev.Kind, "id", ev.EntityID, "error", err)
	}
}
