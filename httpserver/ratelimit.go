package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/metrics"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/time/rate"
)

// CallerLimiter applies a token bucket per caller key and evicts idle buckets.
type CallerLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    deadlock.Mutex
	byKey map[string]*bucket
	hits  uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewCallerLimiter returns nil, which allows everything, if perSecond or
// burst is not positive.
func NewCallerLimiter(perSecond float64, burst int, idleTTL time.Duration) *CallerLimiter {
	if perSecond <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &CallerLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: idleTTL,
		byKey:   make(map[string]*bucket),
	}
}

// Allow reports whether key may make one more request at now.
func (l *CallerLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}

func remoteIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func writeRateLimited(w http.ResponseWriter, metricsSrv *metrics.MetricsServer) {
	if metricsSrv != nil {
		metricsSrv.ObserveRateLimited()
	}
	w.Header().Set("Retry-After", "1")
	api.WriteJSON(w, http.StatusTooManyRequests, api.ErrorResponse{Error: api.CodeRateLimited, Message: "rate limit exceeded"})
}

// rateLimit rejects requests over the remote IP's budget with 429. Request
// headers are not trusted here, the signature has not been checked yet.
func (srv *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !srv.limiter.Allow(remoteIPKey(r), time.Now()) {
			writeRateLimited(w, srv.metricsSrv)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccountRateLimit returns middleware that limits authenticated callers by
// account. It must run after the request signature is verified; requests
// without a caller in their context pass through.
func AccountRateLimit(limiter *CallerLimiter, metricsSrv *metrics.MetricsServer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := api.CallerFrom(r.Context())
			if ok && !limiter.Allow("account:"+caller.String(), time.Now()) {
				writeRateLimited(w, metricsSrv)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
