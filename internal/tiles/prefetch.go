package tiles

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/woozymasta/discardpile/internal/geo"

	"github.com/rs/zerolog/log"
)

// PrefetchStats summarizes a prefetch run.
type PrefetchStats struct {
	Cached  int // already present
	Fetched int
	Missing int // upstream has no tile
	Failed  int
}

type result struct {
	tile geo.Tile
	err  error
	hit  bool
}

// Prefetch fills the cache with tiles using concurrency workers. Existing
// tiles are kept unless force is set.
func (s *Store) Prefetch(ctx context.Context, tiles []geo.Tile, concurrency int, force bool) PrefetchStats {
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan geo.Tile, len(tiles))
	results := make(chan result, len(tiles))

	go func() {
		defer close(jobs)
		for _, t := range tiles {
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results <- s.prefetchOne(ctx, t, force)
			}
		}()
	}
	wg.Wait()
	close(results)

	var stats PrefetchStats
	for res := range results {
		switch {
		case res.hit:
			stats.Cached++
		case res.err == nil:
			stats.Fetched++
		case errors.Is(res.err, ErrNotFound):
			stats.Missing++
		default:
			stats.Failed++
			log.Trace().
				Err(res.err).
				Int("z", res.tile.Z).
				Int("x", res.tile.X).
				Int("y", res.tile.Y).
				Msg("Failed to prefetch tile")
		}
	}

	return stats
}

func (s *Store) prefetchOne(ctx context.Context, t geo.Tile, force bool) result {
	path := s.Path(t)

	// Check existence if not forcing overwrite
	if !force {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return result{tile: t, hit: true}
		}
	}

	return result{tile: t, err: s.fetch(ctx, t, path)}
}
