package recommendations

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/soundshelf/internal/metrics"
	"go.uber.org/zap"
)

const (
	// deletionThreshold is the lowest score a stored recommendation may hold.
	deletionThreshold int64 = -5
	// bucketScoreSplit separates the high bucket (score > split) from the low bucket.
	bucketScoreSplit int64 = 10
	// highBucketProbability is the share of random picks aimed at the high bucket.
	highBucketProbability = 0.7

	voteDirectionUp   = "up"
	voteDirectionDown = "down"
)

var noOpLogger = zap.NewNop()

type bucket int

const (
	bucketHigh bucket = iota
	bucketLow
)

func (b bucket) predicate() ScorePredicate {
	if b == bucketHigh {
		return ScoreAbove
	}
	return ScoreAtMost
}

func (b bucket) other() bucket {
	if b == bucketHigh {
		return bucketLow
	}
	return bucketHigh
}

func (b bucket) String() string {
	if b == bucketHigh {
		return "high"
	}
	return "low"
}

// ServiceConfig describes the dependencies of the scoring and selection engine.
type ServiceConfig struct {
	Gateway Gateway
	Random  RandomSource
	// ListLimit caps List results; zero returns every recommendation.
	ListLimit int
	Logger    *zap.Logger
}

// Service applies votes, enforces the score threshold and serves weighted random picks.
// It holds no mutable state; all state lives behind the Gateway.
type Service struct {
	gateway   Gateway
	random    RandomSource
	listLimit int
	logger    *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, newServiceError(opServiceNew, reasonMissingGateway, ErrInternal, errMissingGateway)
	}

	random := cfg.Random
	if random == nil {
		random = NewRandomSource()
	}

	listLimit := cfg.ListLimit
	if listLimit < 0 {
		listLimit = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		gateway:   cfg.Gateway,
		random:    random,
		listLimit: listLimit,
		logger:    logger,
	}, nil
}

// Insert stores a new recommendation with a zero score.
// It fails with ErrConflict when the name is already taken. Callers needing the record re-fetch it by name.
func (s *Service) Insert(ctx context.Context, name, link string) error {
	if err := s.ready(opInsert); err != nil {
		return err
	}

	existing, err := s.gateway.FindByName(ctx, name)
	if err != nil {
		return newServiceError(opInsert, reasonLookupFailed, ErrInternal, err)
	}
	if existing != nil {
		return newServiceError(opInsert, reasonNameTaken, ErrConflict, errNameTaken)
	}

	if _, err := s.gateway.CreateUnique(ctx, name, link); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return newServiceError(opInsert, reasonNameTaken, ErrConflict, errNameTaken)
		}
		return newServiceError(opInsert, reasonCreateFailed, ErrInternal, err)
	}
	return nil
}

// Upvote adds one to the recommendation's score.
func (s *Service) Upvote(ctx context.Context, id int64) error {
	if err := s.ready(opUpvote); err != nil {
		return err
	}
	if _, err := s.getByIDOrFail(ctx, opUpvote, id); err != nil {
		return err
	}

	updated, err := s.gateway.AdjustScore(ctx, id, ScoreIncrease)
	if err != nil {
		return newServiceError(opUpvote, reasonAdjustFailed, ErrInternal, err)
	}
	if updated == nil {
		return newServiceError(opUpvote, reasonNotFound, ErrNotFound, errRecommendationMissing)
	}

	metrics.RecordVote(voteDirectionUp)
	return nil
}

// Downvote subtracts one from the recommendation's score and deletes it once the
// score falls below the threshold. Both steps commit together or not at all.
func (s *Service) Downvote(ctx context.Context, id int64) error {
	if err := s.ready(opDownvote); err != nil {
		return err
	}
	if _, err := s.getByIDOrFail(ctx, opDownvote, id); err != nil {
		return err
	}

	var (
		deleted    bool
		finalScore int64
	)
	txErr := s.gateway.Atomically(ctx, func(tx Gateway) error {
		updated, err := tx.AdjustScore(ctx, id, ScoreDecrease)
		if err != nil {
			return newServiceError(opDownvote, reasonAdjustFailed, ErrInternal, err)
		}
		if updated == nil {
			return newServiceError(opDownvote, reasonNotFound, ErrNotFound, errRecommendationMissing)
		}
		finalScore = updated.Score
		if updated.Score >= deletionThreshold {
			return nil
		}
		if err := tx.DeleteByID(ctx, id); err != nil {
			return newServiceError(opDownvote, reasonDeleteFailed, ErrInternal, err)
		}
		deleted = true
		return nil
	})
	if txErr != nil {
		var serviceErr *ServiceError
		if errors.As(txErr, &serviceErr) {
			return txErr
		}
		return newServiceError(opDownvote, reasonTransactionFailed, ErrInternal, txErr)
	}

	metrics.RecordVote(voteDirectionDown)
	if deleted {
		metrics.RecordThresholdDeletion()
		s.logger.Info("recommendation removed below score threshold",
			zap.Int64("recommendation_id", id),
			zap.Int64("score", finalScore))
	}
	return nil
}

// GetByID returns the recommendation or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (Recommendation, error) {
	if err := s.ready(opGetByID); err != nil {
		return Recommendation{}, err
	}
	return s.getByIDOrFail(ctx, opGetByID, id)
}

// List returns stored recommendations newest first, capped by the configured list limit.
func (s *Service) List(ctx context.Context) ([]Recommendation, error) {
	if err := s.ready(opList); err != nil {
		return nil, err
	}
	records, err := s.gateway.ListAll(ctx, s.listLimit)
	if err != nil {
		return nil, newServiceError(opList, reasonQueryFailed, ErrInternal, err)
	}
	return nonNil(records), nil
}

// ListTop returns up to amount recommendations ordered by score descending.
func (s *Service) ListTop(ctx context.Context, amount int) ([]Recommendation, error) {
	if err := s.ready(opListTop); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return []Recommendation{}, nil
	}
	records, err := s.gateway.ListTopByScore(ctx, amount)
	if err != nil {
		return nil, newServiceError(opListTop, reasonQueryFailed, ErrInternal, err)
	}
	return nonNil(records), nil
}

// GetRandom returns one recommendation, aiming at the high-score bucket 70% of the
// time and falling back to the other bucket when the chosen one is empty.
func (s *Service) GetRandom(ctx context.Context) (Recommendation, error) {
	if err := s.ready(opGetRandom); err != nil {
		return Recommendation{}, err
	}

	target := bucketLow
	if s.random.Float64() < highBucketProbability {
		target = bucketHigh
	}

	candidates, err := s.gateway.ListByScore(ctx, bucketScoreSplit, target.predicate())
	if err != nil {
		return Recommendation{}, newServiceError(opGetRandom, reasonQueryFailed, ErrInternal, err)
	}

	fallback := false
	if len(candidates) == 0 {
		fallback = true
		target = target.other()
		candidates, err = s.gateway.ListByScore(ctx, bucketScoreSplit, target.predicate())
		if err != nil {
			return Recommendation{}, newServiceError(opGetRandom, reasonQueryFailed, ErrInternal, err)
		}
	}
	if len(candidates) == 0 {
		return Recommendation{}, newServiceError(opGetRandom, reasonNotFound, ErrNotFound, errEmptyStore)
	}

	pick := candidates[s.random.IntN(len(candidates))]
	metrics.RecordRandomPick(target.String(), fallback)
	return pick, nil
}

// Reset deletes every recommendation.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.ready(opReset); err != nil {
		return err
	}
	if err := s.gateway.Truncate(ctx); err != nil {
		return newServiceError(opReset, reasonTruncateFailed, ErrInternal, err)
	}
	s.logger.Warn("recommendations table truncated")
	return nil
}

func (s *Service) getByIDOrFail(ctx context.Context, operation string, id int64) (Recommendation, error) {
	record, err := s.gateway.FindByID(ctx, id)
	if err != nil {
		return Recommendation{}, newServiceError(operation, reasonLookupFailed, ErrInternal, err)
	}
	if record == nil {
		return Recommendation{}, newServiceError(operation, reasonNotFound, ErrNotFound, errRecommendationMissing)
	}
	return *record, nil
}

// ready guards against a zero-value Service.
func (s *Service) ready(operation string) error {
	if s == nil || s.gateway == nil {
		return newServiceError(operation, reasonMissingGateway, ErrInternal, errMissingGateway)
	}
	return nil
}

func nonNil(records []Recommendation) []Recommendation {
	if records == nil {
		return []Recommendation{}
	}
	return records
}
