package core

// commit_limiter.go bounds how many commits talk to the inventory store at
// once. Each commit holds one slot for its whole batch loop. Callers wait up
// to maxWait for a slot before getting ErrTooManyCommits. WaitForDrain lets
// shutdown wait for running commits.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyCommits is returned when every commit slot stays busy for the
// whole wait period.
var ErrTooManyCommits = errors.New("too many concurrent imports, please try again later")

// Defaults used when the limiter is built with non-positive values.
const (
	DefaultMaxConcurrentCommits = 5
	DefaultCommitWait           = 30 * time.Second
)

// CommitLimiter is a counting semaphore over commit runs.
type CommitLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewCommitLimiter allows maxConcurrent commits at once.
func NewCommitLimiter(maxConcurrent int, maxWait time.Duration) *CommitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCommits
	}
	if maxWait <= 0 {
		maxWait = DefaultCommitWait
	}

	return &CommitLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. It returns ErrTooManyCommits when maxWait
// elapses, or ctx's error if ctx ends first. Every successful Acquire must be
// paired with Release.
func (l *CommitLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManyCommits
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *CommitLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *CommitLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// WaitForDrain blocks until no commits are running or ctx ends.
func (l *CommitLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.active.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CommitLimiterStatus is a point-in-time view of the limiter.
type CommitLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status reports current usage.
func (l *CommitLimiter) Status() CommitLimiterStatus {
	return CommitLimiterStatus{
		Active:        int(l.active.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
