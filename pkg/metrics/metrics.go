// Package metrics implements the gateway's in-memory metrics registry
// (spec.md §4.6, §3 "Metrics snapshot"): total/ok/error counters, broken
// down by agent and by provider.
package metrics

import (
	"sync"
	"time"
)

// Registry accumulates process-local request counters.
type Registry struct {
	mu        sync.Mutex
	startedAt time.Time
	total     int64
	ok        int64
	errors    int64
	byAgent   map[string]*counts
	byProvider map[string]*counts
}

type counts struct {
	Total int64 `json:"total"`
	OK    int64 `json:"ok"`
	Error int64 `json:"error"`
}

// New creates an empty registry; uptime is measured from this call.
func New() *Registry {
	return &Registry{
		startedAt:  time.Now(),
		byAgent:    make(map[string]*counts),
		byProvider: make(map[string]*counts),
	}
}

// Record bumps the counters for one completed request. provider may be
// empty (e.g. a request that failed before a provider was selected).
func (r *Registry) Record(agent, providerName string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	if ok {
		r.ok++
	} else {
		r.errors++
	}

	a := r.bucket(r.byAgent, agent)
	bump(a, ok)

	if providerName != "" {
		p := r.bucket(r.byProvider, providerName)
		bump(p, ok)
	}
}

func (r *Registry) bucket(m map[string]*counts, key string) *counts {
	if key == "" {
		key = "unknown"
	}
	c, ok := m[key]
	if !ok {
		c = &counts{}
		m[key] = c
	}
	return c
}

func bump(c *counts, ok bool) {
	c.Total++
	if ok {
		c.OK++
	} else {
		c.Error++
	}
}

// Snapshot is the point-in-time view returned by GET /metrics.
type Snapshot struct {
	UptimeSeconds float64                   `json:"uptime_seconds"`
	TotalRequests int64                     `json:"total_requests"`
	TotalOK       int64                     `json:"total_ok"`
	TotalErrors   int64                     `json:"total_errors"`
	ByAgent       map[string]AgentProviderCounts `json:"by_agent"`
	ByProvider    map[string]AgentProviderCounts `json:"by_provider"`
}

// AgentProviderCounts is one bucket's totals.
type AgentProviderCounts struct {
	Total int64 `json:"total"`
	OK    int64 `json:"ok"`
	Error int64 `json:"error"`
}

// Snapshot takes a consistent point-in-time view of all counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(r.startedAt).Seconds(),
		TotalRequests: r.total,
		TotalOK:       r.ok,
		TotalErrors:   r.errors,
		ByAgent:       make(map[string]AgentProviderCounts, len(r.byAgent)),
		ByProvider:    make(map[string]AgentProviderCounts, len(r.byProvider)),
	}
	for k, c := range r.byAgent {
		snap.ByAgent[k] = AgentProviderCounts(*c)
	}
	for k, c := range r.byProvider {
		snap.ByProvider[k] = AgentProviderCounts(*c)
	}
	return snap
}

// AgentCount returns the number of distinct agents seen so far. spec.md §9
// notes that /v1/agents' "activeAgents" field is never produced by the
// source's snapshot; callers should derive an agent count from the policy
// document instead of this helper where one is needed for that endpoint.
func (r *Registry) AgentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byAgent)
}
