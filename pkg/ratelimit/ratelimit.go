// Package ratelimit implements the gateway's per-agent sliding-window rate
// limiter (spec.md §4.3). A single mutex serializes prune→check→record so
// two concurrent requests from the same agent cannot both observe
// count < limit and then both record (spec.md §5).
package ratelimit

import (
	"sync"
	"time"
)

const window = 60 * time.Second

// Limiter tracks, per agent, the millisecond timestamps of recent
// invocations within a 60-second sliding window.
type Limiter struct {
	mu      sync.Mutex
	entries map[string][]int64
	now     func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		entries: make(map[string][]int64),
		now:     time.Now,
	}
}

// Check prunes expired entries for agent and reports whether its usage is
// still below limit. limit <= 0 disables the limit entirely (always true).
func (l *Limiter) Check(agent string, limit int) bool {
	if limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(agent)) < limit
}

// Record appends the current timestamp for agent. Callers must invoke this
// only after a successful dispatch (spec.md §5) — a failed dispatch must
// not consume quota.
func (l *Limiter) Record(agent string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.prune(agent)
	l.entries[agent] = append(entries, l.now().UnixMilli())
}

// Usage returns the pruned count of invocations for agent within the
// current window.
func (l *Limiter) Usage(agent string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(agent))
}

// Reserve atomically prunes, checks, and — if under limit — records a
// provisional timestamp for agent, all under one lock. It returns whether
// the slot was granted and a release func that must be called if the
// dispatch this slot was reserved for ends up failing (so failures don't
// consume quota, per spec.md §5's ordering rule).
//
// Check+Record alone cannot give the "at most L successes per window"
// invariant under concurrency when a slow dispatch happens between them —
// two requests could both pass Check before either Records. Reserve closes
// that window by recording optimistically and rolling back on failure.
func (l *Limiter) Reserve(agent string, limit int) (ok bool, release func()) {
	if limit <= 0 {
		return true, func() {}
	}

	l.mu.Lock()
	entries := l.prune(agent)
	if len(entries) >= limit {
		l.mu.Unlock()
		return false, func() {}
	}
	ts := l.now().UnixMilli()
	l.entries[agent] = append(entries, ts)
	l.mu.Unlock()

	return true, func() { l.rollback(agent, ts) }
}

func (l *Limiter) rollback(agent string, ts int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries[agent]
	for i, e := range entries {
		if e == ts {
			l.entries[agent] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// prune must be called with l.mu held. It removes entries older than the
// window and returns the surviving slice.
func (l *Limiter) prune(agent string) []int64 {
	cutoff := l.now().Add(-window).UnixMilli()
	entries := l.entries[agent]
	kept := entries[:0:0]
	for _, ts := range entries {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	l.entries[agent] = kept
	return kept
}
