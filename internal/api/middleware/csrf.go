package middleware

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/hugh/chronos/pkg/crypto"
)

const (
	csrfTokenLength = 43
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	csrfTokenExpiry = 24 * time.Hour

	csrfAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

type csrfToken struct {
	value     string
	expiresAt time.Time
}

// CSRFStore keeps one token per session cookie in memory.
type CSRFStore struct {
	tokens map[string]csrfToken
	mu     sync.Mutex
}

func NewCSRFStore() *CSRFStore {
	return &CSRFStore{tokens: make(map[string]csrfToken)}
}

// GetOrCreate returns the live token for sessionID, minting one if needed.
func (s *CSRFStore) GetOrCreate(sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if tok, ok := s.tokens[sessionID]; ok && now.Before(tok.expiresAt) {
		return tok.value, nil
	}

	value, err := crypto.RandomString(csrfTokenLength, csrfAlphabet)
	if err != nil {
		return "", err
	}
	s.tokens[sessionID] = csrfToken{value: value, expiresAt: now.Add(csrfTokenExpiry)}
	return value, nil
}

func (s *CSRFStore) Validate(sessionID, provided string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[sessionID]
	if !ok || time.Now().After(tok.expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tok.value), []byte(provided)) == 1
}

// Prune drops expired tokens.
func (s *CSRFStore) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, tok := range s.tokens {
		if now.After(tok.expiresAt) {
			delete(s.tokens, id)
		}
	}
}

// CSRF protects cookie-authenticated mutations. Requests authenticated by a
// header (Authorization or X-Auth-Token) and requests without a session
// cookie pass through; safe methods get the token cookie issued.
func CSRF(store *CSRFStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := csrfSessionID(r)

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				if sessionID != "" {
					ensureCSRFCookie(w, r, store, sessionID)
				}
				next.ServeHTTP(w, r)
				return
			}

			if sessionID == "" || r.Header.Get("Authorization") != "" || r.Header.Get("X-Auth-Token") != "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(csrfHeaderName)
			if provided == "" {
				writeError(w, http.StatusForbidden, "CSRF token missing")
				return
			}
			if !store.Validate(sessionID, provided) {
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, store *CSRFStore, sessionID string) {
	if _, err := r.Cookie(csrfCookieName); err == nil {
		return
	}

	token, err := store.GetOrCreate(sessionID)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // read by the frontend and echoed in X-CSRF-Token
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTokenExpiry.Seconds()),
	})
}

// csrfSessionID keys tokens by the tail of the session cookie. JWT headers
// are identical across sessions, so the signature end is used.
func csrfSessionID(r *http.Request) string {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if n := len(cookie.Value); n > 16 {
		return cookie.Value[n-16:]
	}
	return cookie.Value
}
