package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// defaultClaimJitter is the upper bound of the random pause added to the
// inter-task delay before a worker claims its next item, desynchronizing
// concurrent workers.
const defaultClaimJitter = 200 * time.Millisecond

// Config holds configuration options for a batch run.
type Config struct {
	// Concurrency is the maximum number of simultaneously active worker
	// invocations. Zero or negative values are clamped to 1.
	Concurrency int

	// InterTaskDelay is the throttle applied after each task completes,
	// before the worker claims the next item. Zero disables throttling.
	InterTaskDelay time.Duration

	// ClaimJitter is the upper bound of the uniform random addition to the
	// inter-task delay. Zero means the 200ms default; negative disables
	// jitter entirely.
	ClaimJitter time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:    2,
		InterTaskDelay: 200 * time.Millisecond,
		ClaimJitter:    defaultClaimJitter,
	}
}

// Worker processes one item and returns its result.
type Worker[T, R any] func(ctx context.Context, item T) (R, error)

// Result is the outcome slot for one item of a batch.
type Result[R any] struct {
	Value    R
	Err      error
	Duration time.Duration
}

// Run fans the items out over at most config.Concurrency workers and blocks
// until every item has been claimed and every active worker has settled.
// The returned slice has the same length and index-alignment as items.
//
// Worker errors and panics are trapped into the item's result slot; they
// never abort the batch or other in-flight workers. Cancelling ctx stops
// workers from claiming new items (in-flight calls finish naturally); items
// left unclaimed get the context error as their result.
func Run[T, R any](ctx context.Context, config Config, logger *slog.Logger, items []T, worker Worker[T, R]) []Result[R] {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	concurrency := config.Concurrency
	if concurrency <= 0 {
		logger.Warn("invalid concurrency specified, using 1",
			"specified", config.Concurrency)
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	jitterBound := config.ClaimJitter
	if jitterBound == 0 {
		jitterBound = defaultClaimJitter
	} else if jitterBound < 0 {
		jitterBound = 0
	}

	logger.Info("starting batch",
		"items", len(items),
		"concurrency", concurrency,
		"inter_task_delay", config.InterTaskDelay)

	// Shared claim cursor; every claim goes through the mutex so concurrent
	// workers never take the same item or skip one.
	var (
		mu   sync.Mutex
		next int
	)
	claim := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(items) {
			return 0, false
		}
		i := next
		next++
		return i, true
	}

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)))

			// Stagger the initial burst so a batch doesn't open with
			// concurrency simultaneous requests at time zero.
			if w > 0 && config.InterTaskDelay > 0 {
				if !sleepCtx(ctx, time.Duration(w)*config.InterTaskDelay) {
					return
				}
			}

			for {
				if ctx.Err() != nil {
					logger.Debug("worker stopping, context done", "worker_id", w)
					return
				}

				i, ok := claim()
				if !ok {
					return
				}

				results[i] = invoke(ctx, items[i], worker, logger.With("worker_id", w, "item_index", i))

				delay := config.InterTaskDelay
				if jitterBound > 0 {
					delay += time.Duration(rng.Int63n(int64(jitterBound)))
				}
				if delay > 0 && !sleepCtx(ctx, delay) {
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Mark anything the workers never claimed (only possible after
	// cancellation) so the output stays index-complete.
	if err := ctx.Err(); err != nil {
		for {
			i, ok := claim()
			if !ok {
				break
			}
			results[i].Err = err
		}
	}

	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
		}
	}
	logger.Info("batch finished",
		"items", len(items),
		"failed", failed)

	return results
}

// invoke runs the worker for one item, trapping errors and panics into the
// result slot.
func invoke[T, R any](ctx context.Context, item T, worker Worker[T, R], logger *slog.Logger) (res Result[R]) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			logger.Error("worker panicked", "panic", r)
			res.Err = fmt.Errorf("worker panic: %v", r)
		} else if res.Err != nil {
			logger.Error("worker failed", "error", res.Err, "duration", res.Duration)
		} else {
			logger.Debug("worker finished", "duration", res.Duration)
		}
	}()

	res.Value, res.Err = worker(ctx, item)
	return res
}

// sleepCtx sleeps for d unless ctx is done first; it reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
