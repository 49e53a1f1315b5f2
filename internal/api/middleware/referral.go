package middleware

import (
	"net/http"
	"time"

	"github.com/hugh/chronos/internal/referral"
)

// ReferralCapture stores a valid ?ref= code in the attribution cookie.
// Malformed codes are dropped without a trace.
func ReferralCapture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := r.URL.Query().Get("ref"); code != "" {
			if cookie, ok := referral.CaptureCookie(code, time.Now()); ok {
				cookie.Secure = r.TLS != nil
				http.SetCookie(w, cookie)
			}
		}
		next.ServeHTTP(w, r)
	})
}
