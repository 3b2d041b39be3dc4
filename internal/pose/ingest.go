package pose

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/teachctl/internal/observability"
	"github.com/rs/zerolog"
)

// ErrFeedEnded reports that a pose feed stopped yielding updates.
var ErrFeedEnded = errors.New("pose: feed ended")

// Feed is a lazy, non-restartable sequence of joint-position arrays.
type Feed interface {
	Next(ctx context.Context) ([]float64, error)
}

// Ingest copies every feed update into cache until ctx is done or the feed ends.
func Ingest(ctx context.Context, feed Feed, cache *Cache, logger zerolog.Logger) error {
	for {
		positions, err := feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug().Msg("pose.Ingest stopped")
				return nil
			}
			logger.Error().Err(err).Msg("pose.Ingest feed failed")
			return fmt.Errorf("%w: %w", ErrFeedEnded, err)
		}
		cache.Update(positions)
		observability.RecordPoseUpdate()
		logger.Trace().Int("joints", len(positions)).Msg("pose.Ingest update")
	}
}
