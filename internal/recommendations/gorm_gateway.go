package recommendations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	columnScore        = "score"
	queryID            = "id = ?"
	queryName          = "name = ?"
	queryScoreAbove    = "score > ?"
	queryScoreAtMost   = "score <= ?"
	orderNewestFirst   = "id DESC"
	orderInsertion     = "id ASC"
	orderScoreDesc     = "score DESC"
	expressionAddScore = "score + ?"
)

var errMissingDatabase = errors.New("database handle is required")

// GormGateway stores recommendations through GORM.
type GormGateway struct {
	db *gorm.DB
}

// NewGormGateway wraps a GORM handle. The recommendations table must already be migrated.
func NewGormGateway(db *gorm.DB) (*GormGateway, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &GormGateway{db: db}, nil
}

// CreateUnique inserts a recommendation with a zero score.
func (gateway *GormGateway) CreateUnique(ctx context.Context, name, link string) (Recommendation, error) {
	record := Recommendation{Name: name, Link: link, Score: 0}
	if err := gateway.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return Recommendation{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		return Recommendation{}, err
	}
	return record, nil
}

// FindByName returns the recommendation with the given name or nil.
func (gateway *GormGateway) FindByName(ctx context.Context, name string) (*Recommendation, error) {
	return gateway.takeOne(ctx, queryName, name)
}

// FindByID returns the recommendation with the given identifier or nil.
func (gateway *GormGateway) FindByID(ctx context.Context, id int64) (*Recommendation, error) {
	return gateway.takeOne(ctx, queryID, id)
}

// AdjustScore updates the score column in place and reads the result back in the same transaction.
func (gateway *GormGateway) AdjustScore(ctx context.Context, id int64, adjustment ScoreAdjustment) (*Recommendation, error) {
	delta, err := adjustment.Delta()
	if err != nil {
		return nil, err
	}

	var updated *Recommendation
	txErr := gateway.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Recommendation{}).
			Where(queryID, id).
			UpdateColumn(columnScore, gorm.Expr(expressionAddScore, delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		var record Recommendation
		if err := tx.Where(queryID, id).Take(&record).Error; err != nil {
			return err
		}
		updated = &record
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return updated, nil
}

// DeleteByID removes the recommendation. Deleting a missing row is not an error.
func (gateway *GormGateway) DeleteByID(ctx context.Context, id int64) error {
	return gateway.db.WithContext(ctx).Where(queryID, id).Delete(&Recommendation{}).Error
}

// ListAll returns recommendations newest first.
func (gateway *GormGateway) ListAll(ctx context.Context, limit int) ([]Recommendation, error) {
	query := gateway.db.WithContext(ctx).Order(orderNewestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []Recommendation
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListByScore returns recommendations matching the score predicate in insertion order.
func (gateway *GormGateway) ListByScore(ctx context.Context, threshold int64, predicate ScorePredicate) ([]Recommendation, error) {
	var condition string
	switch predicate {
	case ScoreAbove:
		condition = queryScoreAbove
	case ScoreAtMost:
		condition = queryScoreAtMost
	default:
		return nil, fmt.Errorf("recommendations: unknown score predicate %d", int(predicate))
	}

	var records []Recommendation
	if err := gateway.db.WithContext(ctx).
		Where(condition, threshold).
		Order(orderInsertion).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListTopByScore returns up to amount recommendations, highest score first, ties in insertion order.
func (gateway *GormGateway) ListTopByScore(ctx context.Context, amount int) ([]Recommendation, error) {
	if amount <= 0 {
		return []Recommendation{}, nil
	}
	var records []Recommendation
	if err := gateway.db.WithContext(ctx).
		Order(orderScoreDesc).
		Order(orderInsertion).
		Limit(amount).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Truncate deletes every recommendation.
func (gateway *GormGateway) Truncate(ctx context.Context) error {
	return gateway.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&Recommendation{}).Error
}

// Atomically runs fn inside a GORM transaction.
func (gateway *GormGateway) Atomically(ctx context.Context, fn func(Gateway) error) error {
	return gateway.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormGateway{db: tx})
	})
}

func (gateway *GormGateway) takeOne(ctx context.Context, query string, argument any) (*Recommendation, error) {
	var record Recommendation
	err := gateway.db.WithContext(ctx).Where(query, argument).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}
