package narrow

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/narrow/internal/store"
)

// PruneFiles prunes each path independently. Results are returned in path
// order; a file that failed has a nil Result (or, under FailOnUnresolved,
// its best-effort Result) and contributes to the returned error.
//
// When WithParallel is enabled, files are pruned concurrently, bounded by
// GOMAXPROCS. Every job builds its own resolver; runs are buffered and
// committed to the store in one transaction after all jobs finish.
func (e *Engine) PruneFiles(ctx context.Context, paths []string) ([]*Result, error) {
	if e.useParallel && len(paths) > 1 {
		return e.pruneFilesParallel(ctx, paths)
	}
	return e.pruneFilesSerial(ctx, paths)
}

func (e *Engine) pruneFilesSerial(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	var errs []error
	for i, path := range paths {
		res, err := e.PruneFile(ctx, path)
		results[i] = res
		if err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("pruning had %d error(s): %w", len(errs), errs[0])
	}
	return results, nil
}

func (e *Engine) pruneFilesParallel(ctx context.Context, paths []string) ([]*Result, error) {
	var (
		batch *store.BatchedStore
		rec   store.Recorder
	)
	if e.store != nil {
		batch = store.NewBatchedStore(e.store)
		rec = batch
	}

	results := make([]*Result, len(paths))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			res, err := e.pruneFile(gctx, path, rec)
			results[i] = res
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("prune %s: %w", path, err))
				mu.Unlock()
			}
			// Per-file failures never cancel the other jobs.
			return nil
		})
	}
	_ = g.Wait()

	if batch != nil && batch.Len() > 0 {
		if _, err := e.store.CommitBatch(batch); err != nil {
			errs = append(errs, fmt.Errorf("commit runs: %w", err))
		} else {
			for _, res := range results {
				if res == nil || res.Cached {
					continue
				}
				if err := e.attachDelta(res); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	if len(errs) > 0 {
		return results, fmt.Errorf("pruning had %d error(s): %w", len(errs), errs[0])
	}
	return results, nil
}
