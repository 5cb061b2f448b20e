package walletRoutes

import (
	walletController "dodje/controllers/wallet"
	"dodje/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupWalletRoutes(app *fiber.App, ctrl *walletController.Controller) {
	walletGroup := app.Group("/wallet")

	// User routes
	walletGroup.Get("/balance", middleware.JWTMiddleware, ctrl.GetWalletBalance)
	walletGroup.Get("/history", middleware.JWTMiddleware, ctrl.GetWalletHistory)

	// Admin routes
	adminGroup := walletGroup.Group("/admin")
	adminGroup.Post("/reconcile", middleware.JWTMiddleware, middleware.RequireRole(middleware.RoleAdmin), ctrl.ReconcileRewards)
}
