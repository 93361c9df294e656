package main

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/liamcoop/visaintake/internal/logger"
	"github.com/liamcoop/visaintake/internal/metrics"
)

// limiterIdleTTL is how long a client's limiter is kept after its last
// request.
const limiterIdleTTL = 10 * time.Minute

type clientEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// clientLimiter rate-limits per client address. Idle clients are swept at
// most once per idle TTL.
type clientLimiter struct {
	mu        sync.Mutex
	m         map[string]*clientEntry
	r         rate.Limit
	b         int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(reqPerSec float64, burst int) *clientLimiter {
	return &clientLimiter{
		m:    make(map[string]*clientEntry),
		r:    rate.Limit(reqPerSec),
		b:    burst,
		idle: limiterIdleTTL,
		now:  time.Now,
	}
}

func (cl *clientLimiter) limiterFor(client string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	if now.Sub(cl.lastSweep) >= cl.idle {
		cl.sweep(now)
	}

	e, ok := cl.m[client]
	if !ok {
		e = &clientEntry{lim: rate.NewLimiter(cl.r, cl.b)}
		cl.m[client] = e
	}
	e.lastSeen = now
	return e.lim
}

// sweep drops clients idle for longer than the TTL. Callers hold mu.
func (cl *clientLimiter) sweep(now time.Time) {
	for client, e := range cl.m {
		if now.Sub(e.lastSeen) > cl.idle {
			delete(cl.m, client)
		}
	}
	cl.lastSweep = now
}

// limit rejects requests over the client's budget with 429. A nil limiter
// or zero rate lets everything through.
func (cl *clientLimiter) limit(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cl == nil || cl.r == 0 {
				next.ServeHTTP(w, r)
				return
			}
			client := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				client = host
			}
			if !cl.limiterFor(client).Allow() {
				metrics.RateLimited.WithLabelValues(route).Inc()
				w.Header().Set("Retry-After", "1")
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// observe records request duration by route pattern and counts 4xx, 5xx and
// slow responses.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		args := []any{
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"requestId", middleware.GetReqID(r.Context()),
		}
		switch {
		case status >= 500:
			logger.ErrorHttp5xx()
			logger.Error("request failed", args...)
		case status >= 400:
			logger.WarnHttp4xx(status)
			logger.Debug("request rejected", args...)
		default:
			logger.Debug("request served", args...)
		}
		if s.slowRequest > 0 && elapsed > s.slowRequest {
			logger.WarnSlowRequest()
			logger.Warn("slow request", args...)
		}
	})
}
