package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserParcoursStatus is one user's state on one parcours. Timestamps are
// written by the store, never by gorm callbacks.
type UserParcoursStatus struct {
	UserID     string    `json:"user_id" gorm:"primaryKey;type:varchar(64)"`
	ParcoursID string    `json:"parcours_id" gorm:"primaryKey;type:varchar(64)"`
	Domain     string    `json:"domain" gorm:"type:varchar(100);index"`
	Status     string    `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

func (UserParcoursStatus) TableName() string {
	return "user_parcours_statuses"
}

// UserVideoStatus carries the latest playback snapshot and the watch sessions
type UserVideoStatus struct {
	UserID     string         `json:"user_id" gorm:"primaryKey;type:varchar(64)"`
	VideoID    string         `json:"video_id" gorm:"primaryKey;type:varchar(64)"`
	ParcoursID string         `json:"parcours_id" gorm:"type:varchar(64);index"`
	Status     string         `json:"status" gorm:"type:varchar(20);not null;index"`
	Position   float64        `json:"current_time" gorm:"column:playback_position;default:0"`
	Duration   float64        `json:"duration" gorm:"default:0"`
	Percentage float64        `json:"percentage" gorm:"default:0"`
	RecordedAt *time.Time     `json:"recorded_at"`
	History    datatypes.JSON `json:"history"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"autoUpdateTime:false"`
}

func (UserVideoStatus) TableName() string {
	return "user_video_statuses"
}

// UserQuizStatus keeps the attempt summary; attempts live in QuizAttempt
type UserQuizStatus struct {
	UserID         string    `json:"user_id" gorm:"primaryKey;type:varchar(64)"`
	QuizID         string    `json:"quiz_id" gorm:"primaryKey;type:varchar(64)"`
	ParcoursID     string    `json:"parcours_id" gorm:"type:varchar(64);index"`
	Status         string    `json:"status" gorm:"type:varchar(20);not null;index"`
	Attempts       int       `json:"attempts" gorm:"default:0"`
	BestScore      float64   `json:"best_score" gorm:"default:0"`
	AverageScore   float64   `json:"average_score" gorm:"default:0"`
	SuccessRate    float64   `json:"success_rate" gorm:"default:0"`
	TotalTimeSpent float64   `json:"total_time_spent" gorm:"column:total_time_spent_seconds;default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

func (UserQuizStatus) TableName() string {
	return "user_quiz_statuses"
}

// QuizAttempt is appended on every submission, passed or not
type QuizAttempt struct {
	ID              uint           `json:"-" gorm:"primaryKey"`
	UserID          string         `json:"user_id" gorm:"type:varchar(64);index:idx_attempt_owner;not null"`
	QuizID          string         `json:"quiz_id" gorm:"type:varchar(64);index:idx_attempt_owner;not null"`
	AttemptKey      string         `json:"attempt_id" gorm:"type:varchar(64);index"` // client supplied, may be empty
	SubmittedAt     time.Time      `json:"submitted_at"`
	TotalQuestions  int            `json:"total_questions"`
	CorrectAnswers  int            `json:"correct_answers"`
	ScorePercentage float64        `json:"score_percentage"`
	Passed          bool           `json:"passed" gorm:"default:false"`
	DurationSeconds float64        `json:"duration_seconds" gorm:"default:0"`
	Answers         datatypes.JSON `json:"answers"`
	CreatedAt       time.Time      `json:"created_at"`
}
