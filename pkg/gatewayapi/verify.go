package gatewayapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/blackroad/gateway/pkg/dispatch"
	"github.com/blackroad/gateway/pkg/policy"
	"github.com/blackroad/gateway/pkg/prompt"
	"github.com/blackroad/gateway/pkg/provider"
	"github.com/blackroad/gateway/pkg/verify"
	"github.com/google/uuid"
)

func (d *Deps) handleVerify(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyResponse{Status: "error", Error: "Invalid JSON", RequestID: requestID})
		return
	}
	if req.Claim == "" {
		writeJSON(w, http.StatusBadRequest, VerifyResponse{Status: "error", Error: "claim is required", RequestID: requestID})
		return
	}

	policyDoc, err := policy.Load(d.Config.PolicyPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, VerifyResponse{Status: "error", Error: err.Error(), RequestID: requestID})
		return
	}
	promptDoc, err := prompt.Load(d.Config.PromptPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, VerifyResponse{Status: "error", Error: err.Error(), RequestID: requestID})
		return
	}

	invoke := func(ctx context.Context, agent, intent string, args provider.Args) (dispatch.Result, error) {
		agentPolicy, err := policyDoc.Resolve(agent, intent)
		if err != nil {
			return dispatch.Result{}, err
		}
		providerName := policyDoc.PickProvider("", intent)
		if providerName == "" {
			providerName = agentPolicy.DefaultProvider
		}
		args.System = prompt.Compose(promptDoc, agent, intent, nil) + "\n\n" + args.System
		return dispatch.InvokeWithFallback(ctx, d.Providers, providerName, agentPolicy.FallbackChain, args)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	v, agentUsed, result, err := verify.Run(ctx, req.Claim, invoke)

	d.Metrics.Record(agentUsed, result.Provider, err == nil)
	go func() {
		if _, err := d.Journal.Record(map[string]any{
			"type":    "verify",
			"agent":   agentUsed,
			"verdict": v.Verdict,
		}); err != nil {
			d.Logger.Warn("journal write failed", "request_id", requestID, "error", err)
		}
	}()

	if err != nil {
		writeJSON(w, http.StatusInternalServerError, VerifyResponse{Status: "error", Error: err.Error(), RequestID: requestID, AgentUsed: agentUsed})
		return
	}

	writeJSON(w, http.StatusOK, VerifyResponse{
		Status:         "ok",
		Verdict:        v.Verdict,
		Confidence:     v.Confidence,
		Reasoning:      v.Reasoning,
		AgentUsed:      agentUsed,
		SourcesChecked: req.Sources,
		Flags:          v.Flags,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		RequestID:      requestID,
	})
}
