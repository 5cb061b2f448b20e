package models

import (
	"time"

	"gorm.io/gorm"
)

// TransactionType defines the type of wallet transaction
type TransactionType string

const (
	TransactionTypeReward      TransactionType = "REWARD"
	TransactionTypeAdminCredit TransactionType = "ADMIN_CREDIT"
	TransactionTypeAdminDebit  TransactionType = "ADMIN_DEBIT"
)

// TransactionStatus defines the status of a transaction
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// WalletTransaction logs every Dodji balance movement of a user
type WalletTransaction struct {
	gorm.Model
	UserID          string            `gorm:"type:varchar(64);not null;index" json:"userId"`
	TransactionType TransactionType   `gorm:"type:varchar(50);not null" json:"transactionType"`
	Amount          int64             `gorm:"not null" json:"amount"`
	BalanceBefore   int64             `gorm:"not null" json:"balanceBefore"`
	BalanceAfter    int64             `gorm:"not null" json:"balanceAfter"`
	Status          TransactionStatus `gorm:"type:varchar(20);default:'COMPLETED'" json:"status"`
	Description     string            `gorm:"type:text" json:"description"`

	// Reference details (for rewards)
	Reference     string `gorm:"type:varchar(36);uniqueIndex" json:"reference"` // uuid
	ReferenceType string `gorm:"type:varchar(50)" json:"referenceType"`         // parcours, admin
	ReferenceID   string `gorm:"type:varchar(128)" json:"referenceId"`          // reward id

	TransactionDate time.Time `gorm:"not null" json:"transactionDate"`
	IsDeleted       bool      `gorm:"default:false" json:"isDeleted"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
