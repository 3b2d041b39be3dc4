package pose

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/danmuck/teachctl/internal/testutil/testlog"
)

type sliceFeed struct {
	updates [][]float64
	err     error
}

func (f *sliceFeed) Next(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.updates) == 0 {
		return nil, f.err
	}
	next := f.updates[0]
	f.updates = f.updates[1:]
	return next, nil
}

type blockingFeed struct{}

func (blockingFeed) Next(ctx context.Context) ([]float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestIngestWritesEveryUpdate(t *testing.T) {
	logger := testlog.Start(t)
	cache := NewCache("base_link", nil)
	feed := &sliceFeed{
		updates: [][]float64{{1, 2}, {3, 4}},
		err:     errors.New("stream closed"),
	}

	err := Ingest(context.Background(), feed, cache, logger)
	if !errors.Is(err, ErrFeedEnded) {
		t.Fatalf("expected ErrFeedEnded, got %v", err)
	}
	snap := cache.Read()
	if !slices.Equal(snap.Positions, []float64{3, 4}) || snap.Header.Seq != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestIngestStopsOnCancel(t *testing.T) {
	logger := testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Ingest(ctx, blockingFeed{}, NewCache("", nil), logger)
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}
