package models

import "time"

// RewardRecord marks a reward as paid. (user_id, reward_id) is unique so a
// second grant of the same reward is a no-op at the database level.
type RewardRecord struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);uniqueIndex:idx_user_reward;not null"`
	RewardID  string    `json:"reward_id" gorm:"type:varchar(128);uniqueIndex:idx_user_reward;not null"`
	Granted   bool      `json:"granted" gorm:"default:true"`
	Amount    int64     `json:"amount" gorm:"not null"`
	GrantedAt time.Time `json:"granted_at" gorm:"not null"`
}
