// Package ratelimit enforces per-service call budgets over a sliding window.
//
// The limiter is process-wide state: it is constructed once at startup,
// injected into the orchestrator, and survives across jobs so that
// back-to-back runs share the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Budget configures the call budget for one service
type Budget struct {
	Limit  int
	Window time.Duration
}

// Clock abstracts time for tests
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter tracks per-service call timestamps over a sliding window and
// delays callers that would exceed their budget. It never rejects a call
// for capacity reasons, it only makes the caller wait.
type Limiter struct {
	mu      sync.Mutex
	budgets map[string]Budget
	calls   map[string][]time.Time
	clock   Clock
}

// New creates a limiter with the given per-service budgets
func New(budgets map[string]Budget) *Limiter {
	return NewWithClock(budgets, realClock{})
}

// NewWithClock creates a limiter with a controllable clock for tests
func NewWithClock(budgets map[string]Budget, clock Clock) *Limiter {
	l := &Limiter{
		budgets: make(map[string]Budget, len(budgets)),
		calls:   make(map[string][]time.Time, len(budgets)),
		clock:   clock,
	}
	for id, b := range budgets {
		if b.Window <= 0 {
			b.Window = time.Minute
		}
		l.budgets[id] = b
	}
	return l
}

// Acquire blocks until a call slot is available for the service, then
// records the call timestamp. It returns early only when ctx is done.
// Unknown services are not limited.
func (l *Limiter) Acquire(ctx context.Context, serviceID string) error {
	for {
		wait, err := l.tryAcquire(serviceID)
		if err != nil {
			return err
		}
		if wait == 0 {
			return nil
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("rate limit wait for %s interrupted: %w", serviceID, err)
		}
	}
}

// tryAcquire records a call if the budget allows it, or returns how long
// the caller must wait for the oldest in-window timestamp to expire.
func (l *Limiter) tryAcquire(serviceID string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	budget, ok := l.budgets[serviceID]
	if !ok {
		return 0, nil
	}
	if budget.Limit <= 0 {
		return 0, fmt.Errorf("service %s has a zero call budget", serviceID)
	}

	now := l.clock.Now()
	window := l.prune(serviceID, now, budget.Window)

	if len(window) < budget.Limit {
		l.calls[serviceID] = append(window, now)
		return 0, nil
	}

	oldest := window[0]
	wait := budget.Window - now.Sub(oldest)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, nil
}

// prune drops timestamps that have left the trailing window
func (l *Limiter) prune(serviceID string, now time.Time, window time.Duration) []time.Time {
	calls := l.calls[serviceID]
	cutoff := now.Add(-window)
	i := 0
	for i < len(calls) && !calls[i].After(cutoff) {
		i++
	}
	calls = calls[i:]
	l.calls[serviceID] = calls
	return calls
}

// InWindow returns how many calls the service has made within its window.
// Used by status reporting and tests.
func (l *Limiter) InWindow(serviceID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	budget, ok := l.budgets[serviceID]
	if !ok {
		return 0
	}
	return len(l.prune(serviceID, l.clock.Now(), budget.Window))
}
