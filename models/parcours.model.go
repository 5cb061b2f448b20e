package models

import "time"

// Parcours is a learning path inside a (domain, level) group
type Parcours struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Domain      string    `json:"domain" gorm:"type:varchar(100);index:idx_parcours_group;not null"`
	Level       string    `json:"level" gorm:"type:varchar(50);index:idx_parcours_group;not null"`
	SortOrder   int       `json:"order" gorm:"column:sort_order;index:idx_parcours_group;default:0"`
	Title       string    `json:"title"`
	Description string    `json:"description" gorm:"type:text"`
	QuizID      string    `json:"quiz_id" gorm:"type:varchar(64)"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Parcours) TableName() string {
	return "parcours"
}

// Video belongs to exactly one parcours
type Video struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	ParcoursID string    `json:"parcours_id" gorm:"type:varchar(64);index;not null"`
	SortOrder  int       `json:"order" gorm:"column:sort_order;default:0"`
	Title      string    `json:"title"`
	VideoURL   string    `json:"video_url"`
	Duration   float64   `json:"duration" gorm:"default:0"` // seconds
	IsDeleted  bool      `json:"-" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Quiz closes a parcours
type Quiz struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	ParcoursID   string    `json:"parcours_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	Title        string    `json:"title"`
	PassingScore float64   `json:"passing_score" gorm:"default:70"`
	IsDeleted    bool      `json:"-" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
