package traffic

import (
	"sync"
	"time"
)

// maxAge bounds how long outcomes are kept.
const maxAge = 5 * time.Minute

var defaultTracker Tracker

// RecordSuccess records a submission that produced a rendered result.
func RecordSuccess() {
	defaultTracker.RecordSuccess()
}

// RecordError records a submission that failed at the service, transport or renderer.
func RecordError() {
	defaultTracker.RecordError()
}

// RecordSuppressed records a submit attempt dropped because one was already in flight or the
// submit limiter was empty.
func RecordSuppressed() {
	defaultTracker.RecordSuppressed()
}

// SubmissionCount returns the number of outcomes (success + error + suppressed) within the window.
func SubmissionCount(window time.Duration) int {
	return defaultTracker.SubmissionCount(window)
}

// SuppressedCount returns the number of suppressed attempts within the window.
func SuppressedCount(window time.Duration) int {
	return defaultTracker.SuppressedCount(window)
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors
// (suppressed attempts excluded).
func ErrorRate(window time.Duration) (errors, total int) {
	return defaultTracker.ErrorRate(window)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker maintains sliding windows of submission outcome timestamps.
type Tracker struct {
	mu              sync.Mutex
	now             func() time.Time
	successTimes    []time.Time
	errorTimes      []time.Time
	suppressedTimes []time.Time
}

func (t *Tracker) RecordSuccess() {
	t.recordOutcome(&t.successTimes)
}

func (t *Tracker) RecordError() {
	t.recordOutcome(&t.errorTimes)
}

func (t *Tracker) RecordSuppressed() {
	t.recordOutcome(&t.suppressedTimes)
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// recordOutcome appends the current time to slice and prunes old entries.
func (t *Tracker) recordOutcome(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

func (t *Tracker) SubmissionCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	return countInWindow(t.successTimes, cutoff) +
		countInWindow(t.errorTimes, cutoff) +
		countInWindow(t.suppressedTimes, cutoff)
}

func (t *Tracker) SuppressedCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countInWindow(t.suppressedTimes, t.clock().Add(-window))
}

// ErrorRate returns (errorCount, totalCount) within the window.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	errCount := countInWindow(t.errorTimes, cutoff)
	return errCount, errCount + countInWindow(t.successTimes, cutoff)
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
	t.suppressedTimes = nil
}

// countInWindow counts timestamps that are not before cutoff.
func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than maxAge. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-maxAge)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
	prune(&t.suppressedTimes)
}
