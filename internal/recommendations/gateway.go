package recommendations

import (
	"context"
	"errors"
	"fmt"
)

// ErrDuplicateName is returned by Gateway.CreateUnique when the name is already stored.
var ErrDuplicateName = errors.New("recommendations: duplicate name")

// ScoreAdjustment enumerates the atomic score changes a gateway supports.
type ScoreAdjustment int

const (
	// ScoreIncrease adds one to the stored score.
	ScoreIncrease ScoreAdjustment = iota + 1
	// ScoreDecrease subtracts one from the stored score.
	ScoreDecrease
)

// Delta returns the signed change applied to the score column.
func (adjustment ScoreAdjustment) Delta() (int64, error) {
	switch adjustment {
	case ScoreIncrease:
		return 1, nil
	case ScoreDecrease:
		return -1, nil
	default:
		return 0, fmt.Errorf("recommendations: unknown score adjustment %d", int(adjustment))
	}
}

func (adjustment ScoreAdjustment) String() string {
	switch adjustment {
	case ScoreIncrease:
		return "increase"
	case ScoreDecrease:
		return "decrease"
	default:
		return "unknown"
	}
}

// ScorePredicate selects how ListByScore compares scores against the threshold.
type ScorePredicate int

const (
	// ScoreAbove matches score > threshold.
	ScoreAbove ScorePredicate = iota + 1
	// ScoreAtMost matches score <= threshold.
	ScoreAtMost
)

// Gateway is the storage boundary used by Service.
// Lookups report absence with a nil record and a nil error.
type Gateway interface {
	CreateUnique(ctx context.Context, name, link string) (Recommendation, error)
	FindByName(ctx context.Context, name string) (*Recommendation, error)
	FindByID(ctx context.Context, id int64) (*Recommendation, error)
	// AdjustScore applies the adjustment atomically and returns the post-update record.
	AdjustScore(ctx context.Context, id int64, adjustment ScoreAdjustment) (*Recommendation, error)
	DeleteByID(ctx context.Context, id int64) error
	// ListAll returns recommendations newest first; limit <= 0 means no limit.
	ListAll(ctx context.Context, limit int) ([]Recommendation, error)
	ListByScore(ctx context.Context, threshold int64, predicate ScorePredicate) ([]Recommendation, error)
	ListTopByScore(ctx context.Context, amount int) ([]Recommendation, error)
	Truncate(ctx context.Context) error
	// Atomically runs fn against a gateway scoped to a single transaction.
	// A non-nil error from fn rolls back every change made through that gateway.
	Atomically(ctx context.Context, fn func(Gateway) error) error
}
