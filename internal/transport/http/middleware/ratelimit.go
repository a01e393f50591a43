package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"kiteretsu_web/internal/httputil"
)

// clientTTL is how long an idle client's limiter is kept before pruning.
const clientTTL = 10 * time.Minute

// RateLimit applies a per-IP token bucket to the wrapped routes. Used on the
// credential-handling POSTs so a misbehaving client cannot hammer the hosted
// auth service through us.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var mu sync.Mutex
	clients := make(map[string]*client)

	// Prune stale entries so the map stays bounded.
	prune := func(now time.Time) {
		for ip, c := range clients {
			if now.Sub(c.lastSeen) > clientTTL {
				delete(clients, ip)
			}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			mu.Lock()
			now := time.Now()
			c, ok := clients[ip]
			if !ok {
				if len(clients) > 1024 {
					prune(now)
				}
				c = &client{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				clients[ip] = c
			}
			c.lastSeen = now
			allowed := c.limiter.Allow()
			mu.Unlock()

			if !allowed {
				httputil.WriteTooManyRequests(w, "Too many attempts, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
