package database

import (
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/soundshelf/internal/recommendations"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsPurgesSubThresholdScores(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&recommendations.Recommendation{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	seeded := []recommendations.Recommendation{
		{Name: "legacy-buried", Link: "https://youtu.be/a", Score: -9},
		{Name: "legacy-edge", Link: "https://youtu.be/b", Score: -5},
		{Name: "legacy-popular", Link: "https://youtu.be/c", Score: 14},
	}
	if err := database.Create(&seeded).Error; err != nil {
		testContext.Fatalf("failed to insert recommendations: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var remaining []recommendations.Recommendation
	if err := database.Order("id ASC").Find(&remaining).Error; err != nil {
		testContext.Fatalf("failed to reload recommendations: %v", err)
	}
	if len(remaining) != 2 {
		testContext.Fatalf("expected 2 surviving recommendations, got %d", len(remaining))
	}
	for _, record := range remaining {
		if record.Score < lowestSurvivingScore {
			testContext.Fatalf("expected sub-threshold rows to be purged, found %+v", record)
		}
	}

	for _, name := range []string{migrationCreateScoreIndex, migrationPurgeSubThresholdScore} {
		var record migrationRecord
		if err := database.Where("name = ?", name).Take(&record).Error; err != nil {
			testContext.Fatalf("expected migration record %s to be created: %v", name, err)
		}
		if record.AppliedAtSeconds == 0 {
			testContext.Fatalf("expected migration timestamp to be set for %s", name)
		}
	}

	if !database.Migrator().HasIndex(&recommendations.Recommendation{}, "idx_recommendations_score") {
		testContext.Fatalf("expected score index to exist")
	}
}

func TestApplyMigrationsRunsOnce(testContext *testing.T) {
	database, err := gorm.Open(sqlite.Open(filepath.Join(testContext.TempDir(), "once.db")), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&recommendations.Recommendation{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("first run failed: %v", err)
	}

	late := recommendations.Recommendation{Name: "inserted-after", Link: "https://youtu.be/d", Score: -8}
	if err := database.Create(&late).Error; err != nil {
		testContext.Fatalf("failed to insert recommendation: %v", err)
	}
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("second run failed: %v", err)
	}

	var count int64
	if err := database.Model(&recommendations.Recommendation{}).Where("id = ?", late.ID).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected applied migrations to be skipped on rerun")
	}
}

func TestOpenSQLiteInitializesSchema(testContext *testing.T) {
	database, err := OpenSQLite(filepath.Join(testContext.TempDir(), "open.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	defer sqlDB.Close()

	if !database.Migrator().HasTable(&recommendations.Recommendation{}) {
		testContext.Fatalf("expected recommendations table")
	}
	if !database.Migrator().HasTable(&migrationRecord{}) {
		testContext.Fatalf("expected migration ledger table")
	}

	if _, err := OpenSQLite("", zap.NewNop()); err == nil {
		testContext.Fatalf("expected empty path to fail")
	}
}
