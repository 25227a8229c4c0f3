package middleware

import (
	"context"
	"hash/fnv"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Limiter enforces a per-principal request ceiling. Implementations must be
// safe for concurrent use and must decide immediately: a deny never blocks
// the caller.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, resetAt time.Time, err error)
}

const (
	rateLimitShards = 16
	cleanupInterval = 5 * time.Minute
	staleEntryTTL   = 10 * time.Minute
)

// MemoryLimiter is an in-process token bucket limiter partitioned into
// shards so unrelated principals never contend on one lock.
type MemoryLimiter struct {
	shards [rateLimitShards]*limiterShard
	rate   float64
	burst  float64
	now    func() time.Time
}

type limiterShard struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time
}

type bucket struct {
	tokens   float64
	last     time.Time
	lastSeen time.Time
}

// NewMemoryLimiter creates a limiter allowing ratePerSec sustained requests
// with bursts up to burst.
func NewMemoryLimiter(ratePerSec float64, burst int) *MemoryLimiter {
	l := &MemoryLimiter{
		rate:  ratePerSec,
		burst: float64(burst),
		now:   time.Now,
	}
	now := time.Now()
	for i := range l.shards {
		l.shards[i] = &limiterShard{
			buckets:     make(map[string]*bucket),
			lastCleanup: now,
		}
	}
	return l
}

func (l *MemoryLimiter) shard(key string) *limiterShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%rateLimitShards]
}

// Allow admits or denies one request for the key. A denied request consumes
// no quota.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	s := l.shard(key)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, exists := s.buckets[key]
	if !exists {
		b = &bucket{tokens: l.burst, last: now}
		s.buckets[key] = b
	} else {
		elapsed := now.Sub(b.last).Seconds()
		b.tokens += elapsed * l.rate
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.last = now
	}
	b.lastSeen = now
	s.cleanupLocked(now)

	if b.tokens < 1 {
		// Time until one whole token has refilled.
		wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
		return false, 0, now.Add(wait), nil
	}

	b.tokens--
	resetAt := now.Add(time.Duration((l.burst - b.tokens) / l.rate * float64(time.Second)))
	return true, int(b.tokens), resetAt, nil
}

func (s *limiterShard) cleanupLocked(now time.Time) {
	if now.Sub(s.lastCleanup) < cleanupInterval {
		return
	}

	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > staleEntryTTL {
			delete(s.buckets, key)
		}
	}

	s.lastCleanup = now
}

// RateLimit returns middleware that enforces the limiter for the request's
// principal. Requests without a principal pass through; the ceiling applies
// to authenticated traffic only.
func RateLimit(limiter Limiter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, resetAt, err := limiter.Allow(r.Context(), principal.RateKey())
			if err != nil {
				log.Error().Err(err).Msg("rate limiter backend error")
				respondError(w, http.StatusServiceUnavailable, "unavailable", "Rate limiter unavailable")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(time.Until(resetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
