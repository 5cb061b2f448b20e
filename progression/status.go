package progression

import "fmt"

// Status is the lifecycle state of a user's parcours, video or quiz.
type Status string

const (
	StatusNone       Status = ""
	StatusBlocked    Status = "blocked"
	StatusUnblocked  Status = "unblocked"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Rank orders statuses along the only direction they may move.
func (s Status) Rank() int {
	switch s {
	case StatusBlocked:
		return 1
	case StatusUnblocked:
		return 2
	case StatusInProgress:
		return 3
	case StatusCompleted:
		return 4
	default:
		return 0
	}
}

func (s Status) Valid() bool {
	return s.Rank() > 0
}

// Available reports whether the user may act on an entity in this status.
func (s Status) Available() bool {
	return s == StatusUnblocked || s == StatusInProgress || s == StatusCompleted
}

func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}

// ParseStatus accepts the lowercase wire form.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return StatusNone, fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

var transitions = map[Status][]Status{
	StatusNone:       {StatusBlocked, StatusUnblocked},
	StatusBlocked:    {StatusUnblocked},
	StatusUnblocked:  {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
}

// CanTransition reports whether from -> to is a legal step. Identity is always
// legal and means "nothing to do".
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Merge returns the status a store should keep when next is written over prev:
// statuses only ever move up in rank.
func Merge(prev, next Status) Status {
	if !next.Valid() || prev.Rank() >= next.Rank() {
		return prev
	}
	return next
}

// Kind identifies the entity a status record belongs to.
type Kind string

const (
	KindParcours Kind = "parcours"
	KindVideo    Kind = "video"
	KindQuiz     Kind = "quiz"
)

func (k Kind) Valid() bool {
	switch k {
	case KindParcours, KindVideo, KindQuiz:
		return true
	}
	return false
}

// ParseKind accepts the lowercase wire form.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if !k.Valid() {
		return "", fmt.Errorf("unknown entity kind %q", raw)
	}
	return k, nil
}

// Allows reports whether an entity of this kind may hold the status. Only a
// parcours has an in_progress state.
func (k Kind) Allows(s Status) bool {
	if s == StatusInProgress {
		return k == KindParcours
	}
	return s.Valid()
}
