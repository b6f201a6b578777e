package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// CookieName carries the opaque session token.
const CookieName = "boxdesk_session"

// DefaultSessionTTL bounds a sign-in regardless of activity.
const DefaultSessionTTL = 24 * time.Hour

type staffKey struct{}

// Staff is the signed-in account a request acts for.
// Every handler scopes its reads and writes to BoxID.
type Staff struct {
	Token     string
	AccountID string
	BoxID     string
	Email     string
	Role      string
	SignedIn  time.Time
}

// Sessions maps cookie tokens to signed-in staff. Tokens live in memory only,
// so a restart signs everyone out along with their unsaved schedule edits.
type Sessions struct {
	ttl    time.Duration
	secure bool
	now    func() time.Time

	mu      sync.RWMutex
	byToken map[string]Staff
}

// NewSessions creates an empty store. secure marks the cookie Secure (production).
func NewSessions(ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{ttl: ttl, secure: secure, now: time.Now, byToken: make(map[string]Staff)}
}

// SignIn issues a token for s and writes the cookie.
// PRE: s.AccountID and s.BoxID are set
// POST: the returned Staff carries the new token
func (ss *Sessions) SignIn(w http.ResponseWriter, s Staff) (Staff, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Staff{}, err
	}
	s.Token = hex.EncodeToString(raw)
	s.SignedIn = ss.now()

	ss.mu.Lock()
	ss.byToken[s.Token] = s
	ss.mu.Unlock()

	ss.writeCookie(w, s.Token, int(ss.ttl/time.Second))
	return s, nil
}

// SignOut forgets the request's token and clears the cookie.
// It returns the token that was dropped, or "" when there was none.
func (ss *Sessions) SignOut(w http.ResponseWriter, r *http.Request) string {
	ss.writeCookie(w, "", -1)
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	ss.mu.Lock()
	delete(ss.byToken, c.Value)
	ss.mu.Unlock()
	return c.Value
}

// Lookup returns the staff for token; expired tokens are dropped on sight.
func (ss *Sessions) Lookup(token string) (Staff, bool) {
	ss.mu.RLock()
	s, ok := ss.byToken[token]
	ss.mu.RUnlock()
	if !ok {
		return Staff{}, false
	}
	if ss.now().Sub(s.SignedIn) > ss.ttl {
		ss.mu.Lock()
		delete(ss.byToken, token)
		ss.mu.Unlock()
		return Staff{}, false
	}
	return s, true
}

func (ss *Sessions) writeCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   ss.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Auth attaches the signed-in staff, if any, to the request context.
// It never rejects; RequireStaff does that per route.
func Auth(ss *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
				if s, ok := ss.Lookup(c.Value); ok {
					r = r.WithContext(WithStaff(r.Context(), s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff answers 401 unless Auth found a live session.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := StaffFrom(r.Context()); !ok {
			slog.Warn("auth_denied", "path", r.URL.Path, "method", r.Method)
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StaffFrom returns the staff Auth attached.
func StaffFrom(ctx context.Context) (Staff, bool) {
	s, ok := ctx.Value(staffKey{}).(Staff)
	return s, ok
}

// WithStaff returns ctx carrying s.
func WithStaff(ctx context.Context, s Staff) context.Context {
	return context.WithValue(ctx, staffKey{}, s)
}
