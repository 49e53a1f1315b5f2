package referral

import (
	"net/http"
	"regexp"
	"time"

	"github.com/hugh/chronos/pkg/crypto"
)

const (
	CodePrefix = "CHRONOS-"

	CookieName   = "chronos_referral_code"
	CookieMaxAge = 30 * 24 * time.Hour

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 5
)

var codePattern = regexp.MustCompile(`^CHRONOS-[A-Z0-9]{5}$`)

// IsValidCode reports whether code has the exact CHRONOS-XXXXX shape.
// Lowercase and padded variants are rejected.
func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}

func GenerateCode() (string, error) {
	suffix, err := crypto.RandomString(codeLength, codeAlphabet)
	if err != nil {
		return "", err
	}
	return CodePrefix + suffix, nil
}

// CaptureCookie builds the attribution cookie for code. It returns false and
// no cookie when code is malformed; callers ignore such codes silently.
func CaptureCookie(code string, now time.Time) (*http.Cookie, bool) {
	if !IsValidCode(code) {
		return nil, false
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    code,
		Path:     "/",
		Expires:  now.Add(CookieMaxAge),
		MaxAge:   int(CookieMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	}, true
}

// FromRequest returns the captured code on r, or "" when absent or malformed.
func FromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil || !IsValidCode(c.Value) {
		return ""
	}
	return c.Value
}
