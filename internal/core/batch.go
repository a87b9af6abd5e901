package core

// batch.go commits import rows to the inventory store.
//
// Small submissions go out as one call. Larger ones are cut into fixed
// windows executed strictly one after another: window N+1 is not sent until
// window N's outcome is folded into the running result, which keeps the
// error row offsets stable and lets the store see earlier windows' effects.
// A window whose call fails is reported as failed row by row and the run
// moves on. Nothing is retried.

import (
	"context"
	"fmt"
)

// Default batching thresholds.
const (
	DefaultSingleBatchLimit = 100
	DefaultBatchSize        = 50
)

// BatchConfig controls how a commit is split.
type BatchConfig struct {
	// SingleBatchLimit is the largest submission sent as one call.
	SingleBatchLimit int
	// BatchSize is the window size above that limit.
	BatchSize int
}

// DefaultBatchConfig returns the standard thresholds.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{SingleBatchLimit: DefaultSingleBatchLimit, BatchSize: DefaultBatchSize}
}

func (c BatchConfig) withDefaults() BatchConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.SingleBatchLimit <= 0 {
		c.SingleBatchLimit = DefaultSingleBatchLimit
	}
	return c
}

// CommitFunc sends one window of rows to the store.
type CommitFunc[T any] func(ctx context.Context, rows []T) (ImportResult, error)

// ProgressFunc receives batch progress. It must not block.
type ProgressFunc func(BatchProgress)

// batchWindow is a half-open range [start, end) of the submission.
type batchWindow struct {
	start, end int
}

// planBatches returns the windows for n rows.
func planBatches(n int, cfg BatchConfig) []batchWindow {
	cfg = cfg.withDefaults()
	if n == 0 {
		return nil
	}
	if n <= cfg.SingleBatchLimit {
		return []batchWindow{{0, n}}
	}

	windows := make([]batchWindow, 0, (n+cfg.BatchSize-1)/cfg.BatchSize)
	for start := 0; start < n; start += cfg.BatchSize {
		windows = append(windows, batchWindow{start, min(start+cfg.BatchSize, n)})
	}
	return windows
}

// TotalBatches reports how many commit calls n rows will take.
func TotalBatches(n int, cfg BatchConfig) int {
	return len(planBatches(n, cfg))
}

// progressPercent is current/total as a whole percentage, rounded up so a
// started batch never reports 0%.
func progressPercent(current, total int) int {
	if total <= 0 {
		return 100
	}
	return (current*100 + total - 1) / total
}

// RunImport commits rows and returns the aggregated result. Every row is
// accounted for exactly once across imported, updated, skipped and failed,
// and error rows are numbered from 1 across the whole submission.
//
// ctx is passed to each commit call; a cancelled context surfaces as failed
// windows rather than stopping the loop. A panicking commit fails its window
// like any other error. A panic anywhere else stops the run: windows already
// folded keep their counters and the remaining rows are reported failed.
func RunImport[T any](ctx context.Context, cfg BatchConfig, rows []T, commit CommitFunc[T], nameOf func(T) string, onProgress ProgressFunc) (result ImportResult) {
	result = ImportResult{Errors: []ImportRowError{}}
	windows := planBatches(len(rows), cfg)

	folded := 0
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		msg := fmt.Sprintf("Import stopped: internal error: %v", r)
		result.Failed += len(rows) - folded
		for j := folded; j < len(rows); j++ {
			result.Errors = append(result.Errors, ImportRowError{Row: j + 1, CardName: nameOf(rows[j]), Error: msg})
		}
	}()

	for i, w := range windows {
		if onProgress != nil {
			onProgress(BatchProgress{
				CurrentBatch: i + 1,
				TotalBatches: len(windows),
				Percentage:   progressPercent(i+1, len(windows)),
			})
		}

		batch := rows[w.start:w.end]
		res, err := safeCommit(ctx, commit, batch)
		if err != nil {
			msg := fmt.Sprintf("Batch %d of %d failed: %v", i+1, len(windows), err)
			result.Failed += len(batch)
			for j, row := range batch {
				result.Errors = append(result.Errors, ImportRowError{
					Row:      w.start + j + 1,
					CardName: nameOf(row),
					Error:    msg,
				})
			}
			folded = w.end
			continue
		}

		result.Imported += res.Imported
		result.Updated += res.Updated
		result.Skipped += res.Skipped
		result.Failed += res.Failed
		for _, e := range res.Errors {
			e.Row += w.start
			result.Errors = append(result.Errors, e)
		}
		folded = w.end
	}

	return result
}

// safeCommit runs one window's call, turning a panic into an error.
func safeCommit[T any](ctx context.Context, commit CommitFunc[T], batch []T) (res ImportResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return commit(ctx, batch)
}
