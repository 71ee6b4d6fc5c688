package gatewayapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/blackroad/gateway/pkg/policy"
	"github.com/google/uuid"
)

const gatewayVersion = "1.0.0"

func (d *Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"gateway":   "blackroad-gateway",
		"version":   gatewayVersion,
		"providers": sortedStrings(d.Providers.List()),
		"uptime":    time.Since(d.StartedAt).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (d *Deps) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"metrics": d.Metrics.Snapshot(),
	})
}

type agentSummary struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Intents           []string `json:"intents"`
	Providers         []string `json:"providers"`
	DefaultProvider   string   `json:"default_provider"`
	RateLimit         int      `json:"rate_limit"`
	UsageLastMinute   int      `json:"usage_last_minute"`
}

func (d *Deps) handleAgents(w http.ResponseWriter, r *http.Request) {
	doc, err := policy.Load(d.Config.PolicyPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, uuid.NewString(), err.Error(), Metadata{})
		return
	}

	names := make([]string, 0, len(doc.Agents))
	for name := range doc.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]agentSummary, 0, len(names))
	for _, name := range names {
		ap := doc.Agents[name]
		summaries = append(summaries, agentSummary{
			Name:            name,
			Description:     ap.Description,
			Intents:         ap.AllowedIntents,
			Providers:       ap.AllowedProviders,
			DefaultProvider: ap.DefaultProvider,
			RateLimit:       doc.RateLimitFor(&ap),
			UsageLastMinute: d.Limiter.Usage(name),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"agents": summaries,
	})
}

func (d *Deps) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": sortedStrings(d.Providers.List()),
	})
}

func (d *Deps) handleMemory(w http.ResponseWriter, r *http.Request) {
	count := d.Context.Count()
	stats := d.Journal.Stats(count)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"memory": stats,
	})
}

func (d *Deps) handleMemoryRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := d.Journal.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, uuid.NewString(), err.Error(), Metadata{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": entries,
	})
}

func (d *Deps) handleWorlds(w http.ResponseWriter, r *http.Request) {
	feedURL := d.Config.WorldsFeedURL
	if feedURL == "" {
		writeError(w, http.StatusBadGateway, uuid.NewString(), "Worlds feed not configured", Metadata{})
		return
	}
	if _, err := url.ParseRequestURI(feedURL); err != nil {
		writeError(w, http.StatusBadGateway, uuid.NewString(), "Worlds feed misconfigured", Metadata{})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, feedURL, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, uuid.NewString(), "Worlds feed request failed", Metadata{})
		return
	}
	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, uuid.NewString(), "Worlds feed unreachable", Metadata{})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		writeError(w, http.StatusBadGateway, uuid.NewString(), "Worlds feed returned an error", Metadata{})
		return
	}

	var worlds any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&worlds); err != nil {
		writeError(w, http.StatusBadGateway, uuid.NewString(), "Worlds feed returned invalid JSON", Metadata{})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"worlds": worlds,
	})
}

// contextSetRequest is the POST /v1/context body: a single key/value pair
// merged into the context store (spec.md §6.3's context.json).
type contextSetRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (d *Deps) handleContextGet(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		entry, ok, err := d.Context.Get(key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, uuid.NewString(), err.Error(), Metadata{})
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, uuid.NewString(), "Not found", Metadata{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "key": key, "entry": entry})
		return
	}

	doc, err := d.Context.All()
	if err != nil {
		writeError(w, http.StatusInternalServerError, uuid.NewString(), err.Error(), Metadata{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "context": doc})
}

func (d *Deps) handleContextSet(w http.ResponseWriter, r *http.Request) {
	var req contextSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, uuid.NewString(), "Invalid JSON", Metadata{})
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, uuid.NewString(), "key is required", Metadata{})
		return
	}
	if err := d.Context.Set(req.Key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, uuid.NewString(), err.Error(), Metadata{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "key": req.Key})
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
