package gatewayapi

// AgentRequest is the POST /v1/agent body (spec.md §3).
type AgentRequest struct {
	Agent    string         `json:"agent"`
	Intent   string         `json:"intent"`
	Input    string         `json:"input"`
	Context  map[string]any `json:"context,omitempty"`
	Provider string         `json:"provider,omitempty"`
}

// Metadata carries per-response timing and rate-limit detail.
type Metadata struct {
	LatencyMs         int64 `json:"latency_ms"`
	Fallback          bool  `json:"fallback,omitempty"`
	LimitPerMinute    int   `json:"limit_per_minute,omitempty"`
	RetryAfterSeconds int   `json:"retry_after_seconds,omitempty"`
}

// AgentResponse is the POST /v1/agent response envelope. Invariant: on
// error, Output is the empty string.
type AgentResponse struct {
	Status    string   `json:"status"`
	Provider  string   `json:"provider,omitempty"`
	Output    string   `json:"output"`
	RequestID string   `json:"request_id"`
	Error     string   `json:"error,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// VerifyRequest is the POST /v1/verify body.
type VerifyRequest struct {
	Claim               string   `json:"claim"`
	Sources             []string `json:"sources,omitempty"`
	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"`
}

// VerifyResponse is the POST /v1/verify response envelope.
type VerifyResponse struct {
	Status        string   `json:"status"`
	Verdict       string   `json:"verdict,omitempty"`
	Confidence    float64  `json:"confidence,omitempty"`
	Reasoning     string   `json:"reasoning,omitempty"`
	AgentUsed     string   `json:"agent_used,omitempty"`
	SourcesChecked []string `json:"sources_checked,omitempty"`
	Flags         []string `json:"flags,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
	RequestID     string   `json:"request_id"`
	Error         string   `json:"error,omitempty"`
}

// errorEnvelope is the shape writeError emits: the 4xx/5xx responses of
// every endpoint except /v1/verify (which answers errors with a
// VerifyResponse), and the 404 catch-all.
type errorEnvelope struct {
	Status    string   `json:"status"`
	Output    string   `json:"output"`
	RequestID string   `json:"request_id"`
	Error     string   `json:"error"`
	Metadata  Metadata `json:"metadata"`
}
