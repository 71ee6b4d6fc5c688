package gatewayapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter is an ambient, defense-in-depth per-IP token bucket sitting in
// front of the policy-driven per-agent limiter (pkg/ratelimit). It protects
// the process from a single noisy remote address regardless of which agent
// it claims to be, independent of the per-agent sliding window.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter creates a limiter allowing rps requests per second per IP,
// with burst allowed in a single instant. A background goroutine evicts
// addresses idle for more than three minutes.
func NewIPLimiter(rps int, burst int) *IPLimiter {
	l := &IPLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go l.evictStale()
	return l
}

func (l *IPLimiter) evictStale() {
	for {
		time.Sleep(time.Minute)
		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Middleware rejects requests over the per-IP rate with 429 before they
// reach the policy-aware pipeline.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !l.allow(host) {
			writeError(w, http.StatusTooManyRequests, "", "Too many requests from this address", Metadata{RetryAfterSeconds: 1})
			return
		}
		next.ServeHTTP(w, r)
	})
}
