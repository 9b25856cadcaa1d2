package transport

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttler applies a token-bucket rate limit per client IP. Idle client
// buckets are dropped after an expiry window to keep the map bounded.
type Throttler struct {
	mu      sync.Mutex
	clients map[string]*throttleEntry
	rps     rate.Limit
	burst   int
	expiry  time.Duration
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewThrottler(rps float64, burst int) *Throttler {
	return &Throttler{
		clients: make(map[string]*throttleEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
		expiry:  3 * time.Minute,
	}
}

// Allow reports whether the request fits within its client's budget.
func (t *Throttler) Allow(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	t.mu.Lock()
	entry, ok := t.clients[host]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.clients[host] = entry
	}
	entry.lastSeen = time.Now()
	if len(t.clients) > 1000 {
		t.evictIdleLocked()
	}
	t.mu.Unlock()

	return entry.limiter.Allow()
}

func (t *Throttler) evictIdleLocked() {
	cutoff := time.Now().Add(-t.expiry)
	for host, entry := range t.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(t.clients, host)
		}
	}
}
