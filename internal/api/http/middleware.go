package http

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"rentaldesk-bff/internal/backend"
	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/session"
)

// IPRateLimiter stores a rate limiter for each client IP. Limiters idle for
// longer than the configured window are evicted.
type IPRateLimiter struct {
	ips  *gocache.Cache
	mu   sync.Mutex
	r    rate.Limit
	b    int
	idle time.Duration
}

func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		ips:  gocache.New(idle, idle),
		r:    r,
		b:    b,
		idle: idle,
	}
}

// GetLimiter returns the limiter for ip, creating it on first use. Every
// lookup restarts the idle window.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := i.ips.Get(ip); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	i.ips.Set(ip, limiter, i.idle)
	return limiter
}

// Len reports how many clients currently hold a limiter.
func (i *IPRateLimiter) Len() int {
	return i.ips.ItemCount()
}

// ClientIPResolver picks the address a request is rate limited by. The
// X-Forwarded-For header is only read when the peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

func NewClientIPResolver(trusted []*net.IPNet) *ClientIPResolver {
	return &ClientIPResolver{trusted: trusted}
}

func (c *ClientIPResolver) isTrusted(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address, or, behind a trusted proxy, the
// right-most forwarded address that is not itself a trusted proxy.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !c.isTrusted(net.ParseIP(peer)) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for idx := len(hops) - 1; idx >= 0; idx-- {
		hop := strings.TrimSpace(hops[idx])
		ip := net.ParseIP(hop)
		if ip == nil {
			break
		}
		if !c.isTrusted(ip) {
			return hop
		}
	}
	return peer
}

// RateLimit rejects requests above the per-IP limit with 429.
func RateLimit(limiter *IPRateLimiter, resolver *ClientIPResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.GetLimiter(resolver.ClientIP(r)).Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests. Please slow down."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogging tags the request with an id and logs its outcome.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(backend.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(backend.HeaderRequestID, requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := ""
		if cur := mux.CurrentRoute(r); cur != nil {
			route = cur.GetName()
		}
		logger.InfoContext(ctx, "HTTP request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Authenticate resolves the caller's session for routes that need one and
// puts it on the request context.
func Authenticate(sessions session.Manager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := ""
			if cur := mux.CurrentRoute(r); cur != nil {
				route = cur.GetName()
			}
			if config.GetSecurityLevel(route) == config.SecurityPublic {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Resolve(r.Header.Get("Authorization"))
			if err != nil {
				logger.WarnContext(r.Context(), "Rejected request", "route", route, "error", err)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Your session has expired. Please sign in again."})
				return
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}
