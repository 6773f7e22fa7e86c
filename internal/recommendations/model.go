package recommendations

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidRecommendationID indicates that an identifier is not a positive integer.
	ErrInvalidRecommendationID = errors.New("recommendations: invalid recommendation id")
	// ErrInvalidAmount indicates that a requested result size is not a positive integer.
	ErrInvalidAmount = errors.New("recommendations: invalid amount")
)

// Recommendation is a submitted media link and its community score.
type Recommendation struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:190;not null;uniqueIndex:idx_recommendations_name" json:"name"`
	Link      string    `gorm:"column:youtube_link;size:512;not null" json:"youtubeLink"`
	Score     int64     `gorm:"column:score;not null;default:0" json:"score"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Recommendation) TableName() string {
	return "recommendations"
}

// ParseRecommendationID validates a raw path segment and returns the identifier.
func ParseRecommendationID(rawInput string) (int64, error) {
	trimmed := strings.TrimSpace(rawInput)
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRecommendationID, rawInput)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRecommendationID, value)
	}
	return value, nil
}

// ParseAmount validates a raw result size such as the top-N path segment.
func ParseAmount(rawInput string) (int, error) {
	trimmed := strings.TrimSpace(rawInput)
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, rawInput)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, value)
	}
	return value, nil
}
