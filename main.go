package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"

	"dodje/config"
	progressController "dodje/controllers/progress"
	walletController "dodje/controllers/wallet"
	"dodje/database"
	"dodje/logger"
	"dodje/progression"
	"dodje/realtime"
	progressRoutes "dodje/routers/progressRoutes"
	walletRoutes "dodje/routers/walletRoutes"
	"dodje/store/gormstore"
	"dodje/utils"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	database.ConnectDb(log)
	db := database.Database.Db

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores
	catalog := gormstore.NewCatalogRepo(db, log)
	statuses := gormstore.NewStatusRepo(db, log)
	rewards := gormstore.NewRewardRepo(db, log)

	// Status change fan-out
	bus, err := realtime.NewBus(cfg.RedisAddr, cfg.RedisChannel, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "addr", cfg.RedisAddr, "error", err)
	}
	defer bus.Close()
	hub := realtime.NewHub()
	if err := bus.StartForwarder(ctx, hub.Dispatch); err != nil {
		log.Fatal("Failed to start status forwarder", "error", err)
	}

	// Services
	resolver := progression.NewUnlockResolver(catalog, statuses, log)
	ledger := progression.NewRewardLedger(rewards, log)
	coordinator := progression.NewCoordinator(catalog, statuses, resolver, ledger, log, progression.Options{
		RewardAmount: cfg.ParcoursReward,
		Notifier:     bus,
	})
	seeder := progression.NewInitializationService(catalog, statuses, log)

	scheduler := utils.NewRewardScheduler(ledger, rewards, cfg.ParcoursReward, log)
	if err := scheduler.Start(cfg.RewardReconcileCron); err != nil {
		log.Fatal("Failed to start reward scheduler", "error", err)
	}
	defer scheduler.Stop()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberLogger.New(fiberLogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	timeout := time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	progressRoutes.SetupProgressRoutes(app, progressController.New(coordinator, seeder, hub, timeout, log))
	walletRoutes.SetupWalletRoutes(app, walletController.New(ledger, rewards, rewards, cfg.ParcoursReward, log))

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn("Shutdown did not complete", "error", err)
		}
	}()

	log.Info("Server is running", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
