package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinOwnerPinLength = 4
	MaxOwnerPinLength = 12
	MaxThemeNameRunes = 64
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	uuidRegex  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// ValidateOwnerPin returns "" for an acceptable PIN, otherwise the reason.
func ValidateOwnerPin(pin string) string {
	if len(pin) < MinOwnerPinLength {
		return "Owner PIN must be at least 4 digits"
	}
	if len(pin) > MaxOwnerPinLength {
		return "Owner PIN must be at most 12 digits"
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return "Owner PIN must contain only digits"
		}
	}
	return ""
}

// ValidatePassword returns "" for an acceptable password, otherwise the reason.
func ValidatePassword(password string) string {
	if len(password) < 8 {
		return "Password must be at least 8 characters"
	}
	if len(password) > 72 {
		return "Password must be at most 72 bytes"
	}
	return ""
}

// ValidateThemeName returns "" for an acceptable theme name, otherwise the
// reason.
func ValidateThemeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Theme name cannot be empty"
	}
	if utf8.RuneCountInString(name) > MaxThemeNameRunes {
		return "Theme name must be at most 64 characters"
	}
	if SanitizeString(name) != name {
		return "Theme name contains control characters"
	}
	return ""
}

// SanitizeString removes null bytes and control characters other than
// newlines and tabs.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
