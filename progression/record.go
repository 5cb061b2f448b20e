package progression

import "time"

// Record is one user's status document for one entity.
type Record struct {
	UserID     string         `json:"userId"`
	Kind       Kind           `json:"kind"`
	EntityID   string         `json:"entityId"`
	ParcoursID string         `json:"parcoursId,omitempty"`
	Domain     string         `json:"domain,omitempty"`
	Status     Status         `json:"status"`
	Video      *VideoProgress `json:"video,omitempty"`
	Quiz       *QuizProgress  `json:"quiz,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// VideoProgress is the latest playback snapshot plus the watch history.
type VideoProgress struct {
	CurrentTime float64        `json:"currentTime"`
	Duration    float64        `json:"duration"`
	Percentage  float64        `json:"percentage"`
	RecordedAt  time.Time      `json:"recordedAt"`
	History     []WatchSession `json:"history,omitempty"`
}

// WatchSession is one contiguous viewing of a video.
type WatchSession struct {
	ID            string    `json:"id"`
	StartPosition float64   `json:"startPosition"`
	EndPosition   float64   `json:"endPosition"`
	StartedAt     time.Time `json:"startedAt"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

// QuizProgress is the attempt log of a quiz and its derived summary.
type QuizProgress struct {
	Summary  QuizSummary   `json:"summary"`
	Attempts []QuizAttempt `json:"attempts,omitempty"`
}

// QuizAttempt is appended for every submission, passing or not.
type QuizAttempt struct {
	ID              string           `json:"id,omitempty"`
	SubmittedAt     time.Time        `json:"submittedAt"`
	TotalQuestions  int              `json:"totalQuestions"`
	CorrectAnswers  int              `json:"correctAnswers"`
	ScorePercentage float64          `json:"scorePercentage"`
	Passed          bool             `json:"passed"`
	Duration        time.Duration    `json:"duration"`
	Answers         []QuestionAnswer `json:"answers,omitempty"`
}

// QuestionAnswer is the per-question detail of an attempt.
type QuestionAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	Correct    bool   `json:"correct"`
}

// Mutation is a merge-write against a status record. Zero fields are left
// untouched.
type Mutation struct {
	ParcoursID string
	Domain     string
	Status     Status
	// Video replaces the playback snapshot unless the stored one was recorded
	// later. History is ignored; use Session.
	Video   *VideoProgress
	Session *WatchSession
	Attempt *QuizAttempt
	At      time.Time
}

// WriteResult reports what an UpsertMerge did. Previous is StatusNone when the
// record was created by this write.
type WriteResult struct {
	Previous Status
	Record   Record
}

// Transitioned reports whether this write moved the record into s.
func (w WriteResult) Transitioned(s Status) bool {
	return w.Previous != s && w.Record.Status == s
}

// Field names a queryable record attribute.
type Field string

const (
	FieldParcoursID Field = "parcours_id"
	FieldStatus     Field = "status"
	FieldDomain     Field = "domain"
)

// ApplyMutation merges m into rec in memory following the store rules: status
// only moves up in rank and must be one rec.Kind allows, the playback snapshot is last-writer-wins on
// RecordedAt, attempts are appended once per attempt id, UpdatedAt never moves
// backwards. It reports whether rec changed; an unchanged record must not be
// rewritten. Store implementations that cannot push these rules into their
// query language call it inside their atomic section.
func ApplyMutation(rec *Record, m Mutation) bool {
	changed := false
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.At
		changed = true
	}
	if m.ParcoursID != "" && rec.ParcoursID != m.ParcoursID {
		rec.ParcoursID = m.ParcoursID
		changed = true
	}
	if m.Domain != "" && rec.Domain != m.Domain {
		rec.Domain = m.Domain
		changed = true
	}
	// A status the kind cannot hold is ignored.
	if rec.Kind.Allows(m.Status) {
		if next := Merge(rec.Status, m.Status); next != rec.Status {
			rec.Status = next
			changed = true
		}
	}

	if (m.Video != nil || m.Session != nil) && rec.Video == nil {
		rec.Video = &VideoProgress{}
		changed = true
	}
	if m.Video != nil && !m.Video.RecordedAt.Before(rec.Video.RecordedAt) {
		rec.Video.CurrentTime = m.Video.CurrentTime
		rec.Video.Duration = m.Video.Duration
		rec.Video.Percentage = m.Video.Percentage
		rec.Video.RecordedAt = m.Video.RecordedAt
		changed = true
	}
	if m.Session != nil {
		rec.Video.History = mergeSession(rec.Video.History, *m.Session)
		changed = true
	}

	if m.Attempt != nil && !hasAttempt(rec.Quiz, m.Attempt.ID) {
		if rec.Quiz == nil {
			rec.Quiz = &QuizProgress{}
		}
		rec.Quiz.Attempts = append(rec.Quiz.Attempts, *m.Attempt)
		rec.Quiz.Summary = SummarizeAttempts(rec.Quiz.Attempts)
		changed = true
	}

	if changed && m.At.After(rec.UpdatedAt) {
		rec.UpdatedAt = m.At
	}
	return changed
}

func hasAttempt(q *QuizProgress, id string) bool {
	if q == nil || id == "" {
		return false
	}
	for _, a := range q.Attempts {
		if a.ID == id {
			return true
		}
	}
	return false
}

func mergeSession(history []WatchSession, s WatchSession) []WatchSession {
	for i := range history {
		if history[i].ID != s.ID {
			continue
		}
		if s.EndPosition > history[i].EndPosition {
			history[i].EndPosition = s.EndPosition
		}
		if s.LastSeenAt.After(history[i].LastSeenAt) {
			history[i].LastSeenAt = s.LastSeenAt
		}
		return history
	}
	return append(history, s)
}

// Clone returns a deep copy so callers can't alias store internals.
func (r Record) Clone() Record {
	out := r
	if r.Video != nil {
		v := *r.Video
		v.History = append([]WatchSession(nil), r.Video.History...)
		out.Video = &v
	}
	if r.Quiz != nil {
		q := *r.Quiz
		q.Attempts = make([]QuizAttempt, len(r.Quiz.Attempts))
		for i, a := range r.Quiz.Attempts {
			a.Answers = append([]QuestionAnswer(nil), a.Answers...)
			q.Attempts[i] = a
		}
		out.Quiz = &q
	}
	return out
}
