// Package gatewayapi wires together policy, prompt, provider, rate-limit,
// metrics, journal, and context-store components into the gateway's HTTP
// request pipeline (spec.md §4.6).
package gatewayapi

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/blackroad/gateway/pkg/config"
	"github.com/blackroad/gateway/pkg/contextstore"
	"github.com/blackroad/gateway/pkg/journal"
	"github.com/blackroad/gateway/pkg/metrics"
	"github.com/blackroad/gateway/pkg/prompt"
	"github.com/blackroad/gateway/pkg/provider"
	"github.com/blackroad/gateway/pkg/ratelimit"
	"github.com/google/uuid"
)

// Deps bundles every gateway component the HTTP handlers depend on.
type Deps struct {
	Config    *config.Config
	Providers *provider.Registry
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Registry
	Journal   *journal.Journal
	Context   *contextstore.Store
	AccessLog *AccessLogger
	Logger    *slog.Logger
	StartedAt time.Time

	// HTTPClient is used for the /v1/worlds upstream proxy; overridable
	// in tests.
	HTTPClient *http.Client

	// IPLimiter is the ambient per-IP limiter (nil disables it).
	IPLimiter *IPLimiter
}

// NewServer builds the gateway's http.Handler.
func NewServer(deps *Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/agent", deps.handleAgent)
	mux.HandleFunc("POST /v1/verify", deps.handleVerify)
	mux.HandleFunc("GET /healthz", deps.handleHealth)
	mux.HandleFunc("GET /health", deps.handleHealth)
	mux.HandleFunc("GET /metrics", deps.loopbackOnly(deps.handleMetrics))
	mux.HandleFunc("GET /v1/agents", deps.loopbackOnly(deps.handleAgents))
	mux.HandleFunc("GET /v1/providers", deps.loopbackOnly(deps.handleProviders))
	mux.HandleFunc("GET /v1/memory", deps.loopbackOnly(deps.handleMemory))
	mux.HandleFunc("GET /v1/memory/recent", deps.loopbackOnly(deps.handleMemoryRecent))
	mux.HandleFunc("GET /v1/worlds", deps.handleWorlds)
	mux.HandleFunc("GET /v1/context", deps.loopbackOnly(deps.handleContextGet))
	mux.HandleFunc("POST /v1/context", deps.loopbackOnly(deps.handleContextSet))
	mux.HandleFunc("/", deps.handleNotFound)

	var handler http.Handler = mux
	if deps.IPLimiter != nil {
		handler = deps.IPLimiter.Middleware(handler)
	}
	return withBodyLimit(handler, deps.Config.MaxBodyBytes)
}

func withBodyLimit(next http.Handler, max int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, max)
		next.ServeHTTP(w, r)
	})
}

func (d *Deps) isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// loopbackOnly rejects non-loopback callers with 403 unless AllowRemote is set.
func (d *Deps) loopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Config.AllowRemote && !d.isLoopback(r) {
			writeError(w, http.StatusForbidden, uuid.NewString(), "Not allowed from remote host", Metadata{})
			return
		}
		next(w, r)
	}
}

func (d *Deps) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, uuid.NewString(), "Not found", Metadata{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, requestID, message string, meta Metadata) {
	writeJSON(w, status, errorEnvelope{
		Status:    "error",
		Output:    "",
		RequestID: requestID,
		Error:     message,
		Metadata:  meta,
	})
}
