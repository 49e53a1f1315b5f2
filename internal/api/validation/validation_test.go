package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"owner@chronos.test", true},
		{"first.last+pos@loja.com.br", true},
		{"", false},
		{"no-at-sign", false},
		{"a@b", false},
		{strings.Repeat("a", 250) + "@x.io", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidEmail(tt.email))
		})
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("2f1c4a8e-5b7d-4c3e-9a1f-0d2e3c4b5a69"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

func TestValidateOwnerPin(t *testing.T) {
	tests := []struct {
		pin string
		ok  bool
	}{
		{"1234", true},
		{"000000000000", true},
		{"123", false},
		{"12a4", false},
		{"1234567890123", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			assert.Equal(t, tt.ok, ValidateOwnerPin(tt.pin) == "")
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.Empty(t, ValidatePassword("longenough"))
	assert.NotEmpty(t, ValidatePassword("short"))
	assert.NotEmpty(t, ValidatePassword(strings.Repeat("x", 73)))
}

func TestValidateThemeName(t *testing.T) {
	assert.Empty(t, ValidateThemeName("Padrão"))
	assert.NotEmpty(t, ValidateThemeName("   "))
	assert.NotEmpty(t, ValidateThemeName(strings.Repeat("ã", 65)))
	assert.NotEmpty(t, ValidateThemeName("bad\x00name"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeString("hello\x00 world"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2\x07"))
}
