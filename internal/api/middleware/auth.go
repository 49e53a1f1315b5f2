package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/database/models"
)

type contextKey string

const (
	UserEmailKey contextKey = "user_email"
	UserKey      contextKey = "user"
)

const (
	IdentityHeader  = "x-user-email"
	UserEmailCookie = "user_email"
	TokenCookie     = "token"
)

// UserLookup resolves an identity email to its user row.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// HeaderIdentity trusts the x-user-email header as the caller's identity.
// Nothing verifies it; deployments must strip the header at the edge.
func HeaderIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if email := auth.NormalizeEmail(r.Header.Get(IdentityHeader)); email != "" {
				r = r.WithContext(context.WithValue(r.Context(), UserEmailKey, email))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenIdentity takes the identity from a signed session token found in the
// Authorization header, the token cookie or X-Auth-Token, in that order. The
// identity header is ignored.
func TokenIdentity(tokens auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := sessionToken(r); token != "" {
				if claims, err := tokens.ValidateToken(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserEmailKey, claims.Email))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get("X-Auth-Token")
}

// RequireIdentity rejects requests that carry no identity with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserEmail(r.Context()) == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 when there is no identity and 403 unless the
// identity belongs to an admin. The user row is read on every request so a
// revoked flag takes effect immediately.
func RequireAdmin(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := GetUserEmail(r.Context())
			if email == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := users.GetUserByEmail(r.Context(), email)
			if err != nil && !errors.Is(err, auth.ErrUserNotFound) {
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if user == nil || !user.IsAdmin {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserKey, user)))
		})
	}
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

// GetUser returns the user loaded by RequireAdmin, if any.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserKey).(*models.User); ok {
		return user
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg})
}
