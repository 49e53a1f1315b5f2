package middleware

import "net/http"

// DashboardGuard sends visitors without a user_email cookie to /login. It
// checks presence only; the pages themselves hold no data.
func DashboardGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(UserEmailCookie); err != nil || c.Value == "" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
