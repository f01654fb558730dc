package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/skimzy/skimzy/internal/api"
)

// limiterIdleTTL is how long a caller's bucket survives without requests.
// A bucket idle that long has refilled, so dropping it changes nothing.
const limiterIdleTTL = 10 * time.Minute

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter hands out one token bucket per caller key. Buckets idle
// for longer than the TTL are swept so anonymous traffic from many
// addresses cannot grow the map without bound.
type KeyedRateLimiter struct {
	limiters  map[string]*keyedLimiter
	mu        sync.Mutex
	rateLimit rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewKeyedRateLimiter(r rate.Limit, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters:  make(map[string]*keyedLimiter),
		rateLimit: r,
		burst:     burst,
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, entry := range l.limiters {
			if now.Sub(entry.lastSeen) >= l.idleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	entry, exists := l.limiters[key]
	if !exists {
		entry = &keyedLimiter{limiter: rate.NewLimiter(l.rateLimit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Len returns the number of tracked callers.
func (l *KeyedRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit rejects requests over the caller's budget with 429. Callers are
// keyed by user id when authenticated and by client IP otherwise. A nil
// limiter disables limiting.
func RateLimit(limiter *KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := "ip:" + clientIP(r)
			if userID := GetUserID(r.Context()); userID != 0 {
				key = "user:" + strconv.FormatInt(userID, 10)
			}

			if !limiter.GetLimiter(key).Allow() {
				w.Header().Set("Retry-After", "1")
				api.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
