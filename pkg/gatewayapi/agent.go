package gatewayapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/blackroad/gateway/pkg/dispatch"
	"github.com/blackroad/gateway/pkg/policy"
	"github.com/blackroad/gateway/pkg/prompt"
	"github.com/blackroad/gateway/pkg/provider"
	"github.com/google/uuid"
)

// handleAgent runs the full request-pipeline state machine (spec.md §4.6):
// parse → validate → authorize-agent → authorize-intent → byte-check →
// rate-check → select-provider → authorize-provider → compose-prompt →
// dispatch → record-rate → respond → (finally) metrics/journal/log.
func (d *Deps) handleAgent(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w}
	w = rec

	start := time.Now()
	requestID := uuid.NewString()

	var agentName, providerUsed, status string
	var fallback bool

	defer func() {
		latency := time.Since(start).Milliseconds()
		d.Metrics.Record(agentName, providerUsed, status == "ok")

		go func() {
			if _, err := d.Journal.Record(map[string]any{
				"type":     "agent_call",
				"agent":    agentName,
				"provider": providerUsed,
				"status":   status,
			}); err != nil {
				d.Logger.Warn("journal write failed", "request_id", requestID, "error", err)
			}
		}()

		if d.AccessLog != nil {
			if err := d.AccessLog.Append(AccessLogRecord{
				RemoteAddr: r.RemoteAddr,
				Method:     r.Method,
				Path:       r.URL.Path,
				RequestID:  requestID,
				Status:     rec.status,
				LatencyMs:  latency,
				Agent:      agentName,
				Provider:   providerUsed,
			}); err != nil {
				d.Logger.Warn("access log write failed", "request_id", requestID, "error", err)
			}
		}
	}()

	var req AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "error"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, requestID, "Request body too large", Metadata{LatencyMs: time.Since(start).Milliseconds()})
			return
		}
		writeError(w, http.StatusBadRequest, requestID, "Invalid JSON", Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}
	agentName = req.Agent

	if msg := validateAgentRequest(req); msg != "" {
		status = "error"
		writeError(w, http.StatusBadRequest, requestID, msg, Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}

	policyDoc, err := policy.Load(d.Config.PolicyPath)
	if err != nil {
		status = "error"
		writeError(w, http.StatusInternalServerError, requestID, err.Error(), Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}

	agentPolicy, err := policyDoc.Resolve(req.Agent, req.Intent)
	if err != nil {
		status = "error"
		code := http.StatusForbidden
		msg := "Agent not allowed"
		if errors.Is(err, policy.ErrIntentNotAllowed) {
			msg = "Intent not allowed"
		}
		writeError(w, code, requestID, msg, Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}

	if len(req.Input) > agentPolicy.MaxInputBytes {
		status = "error"
		writeError(w, http.StatusRequestEntityTooLarge, requestID, "Input too large", Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}

	limit := policyDoc.RateLimitFor(agentPolicy)
	reserved, release := d.Limiter.Reserve(req.Agent, limit)
	if !reserved {
		status = "error"
		writeError(w, http.StatusTooManyRequests, requestID, "Rate limit exceeded", Metadata{
			LatencyMs:         time.Since(start).Milliseconds(),
			LimitPerMinute:    limit,
			RetryAfterSeconds: 60,
		})
		return
	}
	committed := false
	defer func() {
		if !committed {
			release()
		}
	}()

	providerName := policyDoc.PickProvider(req.Provider, req.Intent)
	if providerName == "" {
		status = "error"
		writeError(w, http.StatusBadRequest, requestID, "Provider not configured", Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}
	if !agentPolicy.HasProvider(providerName) {
		status = "error"
		writeError(w, http.StatusForbidden, requestID, "Provider not allowed", Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}

	promptDoc, err := prompt.Load(d.Config.PromptPath)
	if err != nil {
		status = "error"
		writeError(w, http.StatusInternalServerError, requestID, err.Error(), Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}
	system := prompt.Compose(promptDoc, req.Agent, req.Intent, req.Context)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := dispatch.InvokeWithFallback(ctx, d.Providers, providerName, agentPolicy.FallbackChain, provider.Args{
		Input:     req.Input,
		System:    system,
		Context:   req.Context,
		RequestID: requestID,
		Agent:     req.Agent,
		Intent:    req.Intent,
	})
	if err != nil {
		status = "error"
		writeError(w, http.StatusInternalServerError, requestID, err.Error(), Metadata{LatencyMs: time.Since(start).Milliseconds()})
		return
	}

	committed = true
	status = "ok"
	providerUsed = result.Provider
	fallback = result.Fallback

	writeJSON(w, http.StatusOK, AgentResponse{
		Status:    "ok",
		Provider:  result.Provider,
		Output:    result.Output,
		RequestID: requestID,
		Metadata: Metadata{
			LatencyMs: time.Since(start).Milliseconds(),
			Fallback:  fallback,
		},
	})
}

func validateAgentRequest(req AgentRequest) string {
	if req.Agent == "" {
		return "agent is required"
	}
	if req.Intent == "" {
		return "intent is required"
	}
	if req.Input == "" {
		return "input is required"
	}
	return ""
}
