package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/soundshelf/internal/recommendations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationCreateScoreIndex       = "2026-10-01_create_recommendation_score_index"
	migrationPurgeSubThresholdScore = "2026-10-06_purge_sub_threshold_scores"

	// lowestSurvivingScore mirrors the deletion rule enforced on downvote.
	lowestSurvivingScore = -5
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationCreateScoreIndex, apply: createScoreIndex},
		{name: migrationPurgeSubThresholdScore, apply: purgeSubThresholdScores},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// createScoreIndex backs the bucket and top-N queries.
func createScoreIndex(db *gorm.DB) error {
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_recommendations_score ON recommendations (score)").Error
}

// purgeSubThresholdScores removes rows imported from stores that never enforced the threshold.
func purgeSubThresholdScores(db *gorm.DB) error {
	return db.Where("score < ?", lowestSurvivingScore).Delete(&recommendations.Recommendation{}).Error
}
