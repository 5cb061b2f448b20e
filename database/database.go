package database

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"dodje/config"
	"dodje/logger"
	"dodje/models"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb opens the configured database, migrates it and stores the handle
// globally. It exits the process on failure.
func ConnectDb(log *logger.Logger) {
	db, err := Open(config.AppConfig)
	if err != nil {
		log.Fatal("Failed to connect to database", "driver", config.AppConfig.DBDriver, "error", err)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance", "error", err)
	}
	if db.Dialector.Name() == "sqlite" {
		sqlDB.SetMaxOpenConns(1) // one writer at a time
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
	}
	sqlDB.SetConnMaxLifetime(0) // No timeout

	log.Info("Running Migrations...")
	if err := Migrate(db); err != nil {
		log.Fatal("Migration failed", "error", err)
	}
	log.Info("Migrations completed successfully.")

	// Save database instance globally
	Database = DbInstance{Db: db}
}

// Open connects to the driver named by cfg.DBDriver without migrating.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.DBDriver) {
	case "postgres", "":
		dialector = postgres.Open(fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		))
	case "mysql":
		dialector = mysql.Open(fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		))
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	gormCfg := &gorm.Config{}
	if cfg.LogMode == "prod" || cfg.LogMode == "test" {
		gormCfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.DBDriver)
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.WalletTransaction{},
		&models.Parcours{},
		&models.Video{},
		&models.Quiz{},
		&models.UserParcoursStatus{},
		&models.UserVideoStatus{},
		&models.UserQuizStatus{},
		&models.QuizAttempt{},
		&models.RewardRecord{},
	)
}
