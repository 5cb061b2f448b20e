package gormstore_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"dodje/database"
	"dodje/logger"
	"dodje/models"
	"dodje/store/gormstore"
)

// openDB returns a migrated in-memory SQLite database private to the test.
func openDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(tb, err)

	sqlDB, err := db.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(tb, database.Migrate(db))
	return db
}

// seedBourse imports the "Bourse / debutant" group A(V1, V2, Q1) -> B(V3, Q2)
// and a lone "Crypto / debutant" parcours X(VX, QX).
func seedBourse(tb testing.TB, catalog *gormstore.CatalogRepo) {
	tb.Helper()
	ctx := context.Background()
	imports := []struct {
		parcours models.Parcours
		videos   []models.Video
		quiz     *models.Quiz
	}{
		{
			models.Parcours{ID: "A", Domain: "Bourse", Level: "debutant", SortOrder: 1},
			[]models.Video{{ID: "V1", SortOrder: 1, Duration: 100}, {ID: "V2", SortOrder: 2, Duration: 100}},
			&models.Quiz{ID: "Q1", PassingScore: 70},
		},
		{
			models.Parcours{ID: "B", Domain: "Bourse", Level: "debutant", SortOrder: 2},
			[]models.Video{{ID: "V3", SortOrder: 1, Duration: 60}},
			&models.Quiz{ID: "Q2", PassingScore: 70},
		},
		{
			models.Parcours{ID: "X", Domain: "Crypto", Level: "debutant", SortOrder: 1},
			[]models.Video{{ID: "VX", SortOrder: 1, Duration: 30}},
			&models.Quiz{ID: "QX", PassingScore: 70},
		},
	}
	for _, imp := range imports {
		require.NoError(tb, catalog.Import(ctx, imp.parcours, imp.videos, imp.quiz))
	}
}

func nopLog() *logger.Logger { return logger.Nop() }
