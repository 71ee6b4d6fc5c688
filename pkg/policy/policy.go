// Package policy loads and resolves the agent/intent/provider permission
// matrix described in spec.md §3–§4.2. Documents are read fresh from disk
// on every call — cheap, and it keeps hot-edited policy files visible
// without a restart (spec.md §9).
package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrAgentNotAllowed is returned when the requested agent has no policy entry.
var ErrAgentNotAllowed = errors.New("agent not allowed")

// ErrIntentNotAllowed is returned when the resolved agent policy doesn't
// permit the requested intent.
var ErrIntentNotAllowed = errors.New("intent not allowed")

// AgentPolicy is one agent's entry in the permission matrix (spec.md §3).
type AgentPolicy struct {
	Description        string   `json:"description"`
	AllowedIntents      []string `json:"allowed_intents"`
	AllowedProviders    []string `json:"allowed_providers"`
	DefaultProvider     string   `json:"default_provider"`
	FallbackChain       []string `json:"fallback_chain"`
	MaxInputBytes       int      `json:"max_input_bytes"`
	RateLimitPerMinute  int      `json:"rate_limit_per_minute"`
}

// HasIntent reports whether intent is in the agent's allowed set.
func (p AgentPolicy) HasIntent(intent string) bool {
	for _, i := range p.AllowedIntents {
		if i == intent {
			return true
		}
	}
	return false
}

// HasProvider reports whether providerName is in the agent's allowed set.
func (p AgentPolicy) HasProvider(providerName string) bool {
	for _, n := range p.AllowedProviders {
		if n == providerName {
			return true
		}
	}
	return false
}

// Document is the top-level policy file (spec.md §3).
type Document struct {
	Version        int                    `json:"version"`
	Global         GlobalConfig           `json:"global"`
	Agents         map[string]AgentPolicy `json:"agents"`
	IntentRoutes   map[string]string      `json:"intent_routes"`
	DefaultProvider string                `json:"default_provider"`
	CostTiers      map[string]any         `json:"cost_tiers"`
}

// GlobalConfig holds document-wide defaults.
type GlobalConfig struct {
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
}

// Load reads and parses the policy document at path. It fails if the
// document lacks an "agents" object.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	if doc.Agents == nil {
		return nil, fmt.Errorf("policy: %s: missing \"agents\" object", path)
	}
	return &doc, nil
}

// Resolve returns the AgentPolicy for agent, checking that intent is
// permitted. Distinct errors distinguish "agent not allowed" from "intent
// not allowed" per spec.md §4.2.
func (d *Document) Resolve(agentName, intent string) (*AgentPolicy, error) {
	ap, ok := d.Agents[agentName]
	if !ok {
		return nil, ErrAgentNotAllowed
	}
	if !ap.HasIntent(intent) {
		return nil, ErrIntentNotAllowed
	}
	return &ap, nil
}

// RateLimitFor returns the effective rate limit for an agent policy,
// falling back to the document's global default when the agent omits one.
// An explicit rate_limit_per_minute of 0 reads the same as an omitted one:
// it yields the global default and does not disable the agent's limit.
func (d *Document) RateLimitFor(ap *AgentPolicy) int {
	if ap.RateLimitPerMinute != 0 {
		return ap.RateLimitPerMinute
	}
	return d.Global.RateLimitPerMinute
}

// PickProvider implements spec.md §4.2's selection order: the explicitly
// requested provider wins; otherwise the intent route; otherwise the
// document default; otherwise empty (the /v1/agent handler then answers
// "Provider not configured" without calling the dispatcher).
func (d *Document) PickProvider(requested string, intent string) string {
	if requested != "" {
		return requested
	}
	if d.IntentRoutes != nil {
		if p, ok := d.IntentRoutes[intent]; ok && p != "" {
			return p
		}
	}
	return d.DefaultProvider
}
