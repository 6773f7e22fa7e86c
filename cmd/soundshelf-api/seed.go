package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/soundshelf/internal/recommendations"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultSeedCount   = 10
	youtubeWatchPrefix = "https://www.youtube.com/watch?v="
	youtubeVideoIDSize = 10
)

// recommendationInserter is the slice of the engine the seeder needs.
type recommendationInserter interface {
	Insert(ctx context.Context, name, link string) error
}

type seedResult struct {
	Inserted int
	Skipped  int
}

func newSeedCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake recommendations for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := seedRecommendations(cmd.Context(), rt.service, gofakeit.New(0), count)
			if err != nil {
				return err
			}
			rt.logger.Info("seeded recommendations",
				zap.Int("inserted", result.Inserted),
				zap.Int("skipped_duplicates", result.Skipped))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", defaultSeedCount, "Number of recommendations to generate")
	return cmd
}

// seedRecommendations inserts count fake recommendations, skipping names that already exist.
func seedRecommendations(ctx context.Context, inserter recommendationInserter, faker *gofakeit.Faker, count int) (seedResult, error) {
	var result seedResult
	for index := 0; index < count; index++ {
		name := faker.SongName()
		link := youtubeWatchPrefix + faker.LetterN(youtubeVideoIDSize)
		err := inserter.Insert(ctx, name, link)
		switch {
		case err == nil:
			result.Inserted++
		case errors.Is(err, recommendations.ErrConflict):
			result.Skipped++
		default:
			return result, err
		}
	}
	return result, nil
}
