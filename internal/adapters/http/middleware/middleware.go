package middleware

import (
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
)

// RateLimiter counts requests per client in fixed windows. Signed-in staff are
// keyed by session token so a whole box behind one NAT is not throttled together.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*window

	stop chan struct{}
	once sync.Once
}

type window struct {
	start time.Time
	count int
}

// NewRateLimiter allows limit requests per client per window and starts a sweeper.
func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	rl := &RateLimiter{
		limit:   limit,
		window:  per,
		now:     time.Now,
		clients: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go rl.sweep(time.Minute)
	return rl
}

func (rl *RateLimiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-t.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-rl.window)
			for k, w := range rl.clients {
				if w.start.Before(cutoff) {
					delete(rl.clients, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the sweeper.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// Allow records one request for key.
// POST: false once key has made limit requests in the current window
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[key] = &window{start: now, count: 1}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func clientKey(r *http.Request) string {
	if s, ok := StaffFrom(r.Context()); ok {
		return "staff:" + s.Token
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// RateLimit answers 429 once a client exceeds the limiter. It must run inside Auth.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := clientKey(r); !rl.Allow(key) {
				slog.Warn("rate_limited", "path", r.URL.Path, "client", strings.SplitN(key, ":", 2)[0])
				w.Header().Set("Retry-After", "1")
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets the headers every response carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// formContentTypes are the bodies a cross-site HTML form can submit.
var formContentTypes = map[string]bool{
	"application/x-www-form-urlencoded": true,
	"multipart/form-data":               true,
	"text/plain":                        true,
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err != nil || formContentTypes[mt]
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// sameOrigin rejects an unsafe request the browser marks as cross-site, or whose
// Origin is neither this host nor a trusted one. Clients that send neither
// header (curl, tests) pass; they cannot carry a victim's cookie.
func sameOrigin(r *http.Request, trusted map[string]bool) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return false
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host || trusted[u.Host]
}

// CSRF guards form submissions with gorilla/csrf tokens. The API's own calls
// (JSON bodies, or bodyless POST and DELETE) carry no token; for those the
// browser's Sec-Fetch-Site and Origin headers must show a same-origin caller.
// trustedOrigins are host[:port] values, as gorilla/csrf takes them.
func CSRF(authKey []byte, secure bool, trustedOrigins []string) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.TrustedOrigins(trustedOrigins),
	)
	trusted := make(map[string]bool, len(trustedOrigins))
	for _, o := range trustedOrigins {
		trusted[o] = true
	}
	return func(next http.Handler) http.Handler {
		guarded := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case isSafeMethod(r.Method):
				next.ServeHTTP(w, r)
			case isFormPost(r):
				if !secure {
					r = csrf.PlaintextHTTPRequest(r)
				}
				guarded.ServeHTTP(w, r)
			case sameOrigin(r, trusted):
				next.ServeHTTP(w, r)
			default:
				slog.Warn("csrf_rejected", "method", r.Method, "path", r.URL.Path,
					"origin", r.Header.Get("Origin"), "fetch_site", r.Header.Get("Sec-Fetch-Site"))
				http.Error(w, "cross-origin request rejected", http.StatusForbidden)
			}
		})
	}
}

// Chain wraps h so the last middleware listed is outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
