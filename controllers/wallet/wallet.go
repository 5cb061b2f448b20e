package walletController

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"dodje/logger"
	"dodje/middleware"
	"dodje/models"
	"dodje/progression"
)

// HistorySource lists wallet transactions, newest first.
type HistorySource interface {
	History(ctx context.Context, userID string, limit, offset int) ([]models.WalletTransaction, int64, error)
}

// Controller serves the Dodji wallet endpoints.
type Controller struct {
	ledger  *progression.RewardLedger
	history HistorySource
	pending progression.PendingRewardSource
	reward  int64
	log     *logger.Logger
}

func New(ledger *progression.RewardLedger, history HistorySource, pending progression.PendingRewardSource, reward int64, baseLog *logger.Logger) *Controller {
	return &Controller{
		ledger:  ledger,
		history: history,
		pending: pending,
		reward:  reward,
		log:     baseLog.With("controller", "wallet"),
	}
}

// GetWalletBalance returns user's current Dodji balance
func (h *Controller) GetWalletBalance(c *fiber.Ctx) error {
	balance, err := h.ledger.Balance(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.log.Error("Failed to read balance", "userId", middleware.UserID(c), "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch balance!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Wallet balance fetched!", fiber.Map{
		"balance":  balance,
		"currency": "DODJI",
	})
}

// GetWalletHistory returns user's wallet transaction history
func (h *Controller) GetWalletHistory(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	// Parse query params
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	transactions, total, err := h.history.History(c.UserContext(), userID, limit, offset)
	if err != nil {
		h.log.Error("Failed to fetch history", "userId", userID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch history!", nil)
	}
	balance, err := h.ledger.Balance(c.UserContext(), userID)
	if err != nil {
		h.log.Error("Failed to read balance", "userId", userID, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch history!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Wallet history fetched!", fiber.Map{
		"transactions":   transactions,
		"currentBalance": balance,
		"pagination": fiber.Map{
			"total":      total,
			"page":       page,
			"limit":      limit,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// ReconcileRewards pays every completed parcours whose reward is missing.
// Admin only.
func (h *Controller) ReconcileRewards(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 500)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), 2*time.Minute)
	defer cancel()

	granted, err := h.ledger.Reconcile(ctx, h.pending, h.reward, limit)
	if err != nil {
		h.log.Error("Reward reconciliation failed", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Reconciliation failed!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Rewards reconciled!", fiber.Map{"granted": granted})
}
