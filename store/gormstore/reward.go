package gormstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dodje/logger"
	"dodje/models"
	"dodje/progression"
)

// RewardRepo implements progression.RewardStore and
// progression.PendingRewardSource. The Dodji balance lives on models.User and
// every credit is logged as a models.WalletTransaction.
type RewardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRewardRepo(db *gorm.DB, baseLog *logger.Logger) *RewardRepo {
	return &RewardRepo{db: db, log: baseLog.With("repo", "RewardRepo")}
}

func (r *RewardRepo) GetReward(ctx context.Context, userID, rewardID string) (*progression.RewardRecord, error) {
	var row models.RewardRecord
	err := r.db.WithContext(ctx).Where("user_id = ? AND reward_id = ?", userID, rewardID).Take(&row).Error
	if err != nil {
		if err = notFoundAsNil(err); err != nil {
			return nil, errors.Wrapf(err, "get reward %s", rewardID)
		}
		return nil, nil
	}
	return &progression.RewardRecord{
		UserID:    row.UserID,
		RewardID:  row.RewardID,
		Granted:   row.Granted,
		Amount:    row.Amount,
		GrantedAt: row.GrantedAt.UTC(),
	}, nil
}

// GrantReward records the reward, credits the balance and logs the wallet
// transaction in one transaction. The unique (user_id, reward_id) index turns
// a concurrent second grant into a no-op.
func (r *RewardRepo) GrantReward(ctx context.Context, rec progression.RewardRecord) (bool, error) {
	granted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.RewardRecord{
			UserID:    rec.UserID,
			RewardID:  rec.RewardID,
			Granted:   true,
			Amount:    rec.Amount,
			GrantedAt: rec.GrantedAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return errors.Wrap(res.Error, "insert reward record")
		}
		if res.RowsAffected == 0 {
			return nil
		}

		user := models.User{ID: rec.UserID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
			return errors.Wrap(err, "ensure user")
		}
		if err := forUpdate(tx).Where("id = ?", rec.UserID).Take(&user).Error; err != nil {
			return errors.Wrap(err, "lock user")
		}
		before := user.DodjiBalance
		after := before + rec.Amount
		err := tx.Model(&models.User{}).Where("id = ?", rec.UserID).Updates(map[string]interface{}{
			"dodji_balance":    after,
			"last_activity_at": rec.GrantedAt,
		}).Error
		if err != nil {
			return errors.Wrap(err, "credit balance")
		}

		txn := models.WalletTransaction{
			UserID:          rec.UserID,
			TransactionType: models.TransactionTypeReward,
			Amount:          rec.Amount,
			BalanceBefore:   before,
			BalanceAfter:    after,
			Status:          models.TransactionStatusCompleted,
			Description:     describeReward(rec.RewardID),
			Reference:       uuid.NewString(),
			ReferenceType:   referenceType(rec.RewardID),
			ReferenceID:     rec.RewardID,
			TransactionDate: rec.GrantedAt,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return errors.Wrap(err, "log wallet transaction")
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "grant reward %s", rec.RewardID)
	}
	return granted, nil
}

func (r *RewardRepo) Balance(ctx context.Context, userID string) (int64, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("dodji_balance").Where("id = ?", userID).Take(&user).Error; err != nil {
		if err = notFoundAsNil(err); err != nil {
			return 0, errors.Wrap(err, "read balance")
		}
		return 0, nil
	}
	return user.DodjiBalance, nil
}

// History returns the user's wallet transactions, newest first.
func (r *RewardRepo) History(ctx context.Context, userID string, limit, offset int) ([]models.WalletTransaction, int64, error) {
	scope := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.WalletTransaction{}).Where("user_id = ? AND is_deleted = ?", userID, false)
	}
	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count wallet transactions")
	}
	var rows []models.WalletTransaction
	if err := scope().Order("transaction_date DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list wallet transactions")
	}
	return rows, total, nil
}

// PendingParcoursRewards lists completed parcours that have no reward record,
// oldest completion first.
func (r *RewardRepo) PendingParcoursRewards(ctx context.Context, limit int) ([]progression.PendingReward, error) {
	rewardKey := "? || ups.parcours_id"
	if r.db.Dialector.Name() == "mysql" {
		rewardKey = "CONCAT(?, ups.parcours_id)"
	}
	var rows []struct {
		UserID     string
		ParcoursID string
	}
	q := r.db.WithContext(ctx).
		Table("user_parcours_statuses AS ups").
		Select("ups.user_id, ups.parcours_id").
		Joins("LEFT JOIN reward_records rr ON rr.user_id = ups.user_id AND rr.reward_id = "+rewardKey, progression.RewardIDForParcours("")).
		Where("ups.status = ? AND rr.id IS NULL", string(progression.StatusCompleted)).
		Order("ups.updated_at").Order("ups.user_id").Order("ups.parcours_id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list pending parcours rewards")
	}
	out := make([]progression.PendingReward, 0, len(rows))
	for _, row := range rows {
		out = append(out, progression.PendingReward{UserID: row.UserID, ParcoursID: row.ParcoursID})
	}
	return out, nil
}

func referenceType(rewardID string) string {
	if strings.HasPrefix(rewardID, progression.RewardIDForParcours("")) {
		return "parcours"
	}
	return "reward"
}

func describeReward(rewardID string) string {
	if id := strings.TrimPrefix(rewardID, progression.RewardIDForParcours("")); id != rewardID {
		return fmt.Sprintf("Parcours %s completed", id)
	}
	return fmt.Sprintf("Reward %s", rewardID)
}
