package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRequest_Validate(t *testing.T) {
	assert.Empty(t, RegisterRequest{Email: "a@chronos.test", Password: "longenough", Name: "A"}.Validate())

	errs := RegisterRequest{Email: "bad", Password: "short"}.Validate()
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "name")
}

func TestUpdateOwnerPinRequest_Validate(t *testing.T) {
	assert.Empty(t, UpdateOwnerPinRequest{OwnerPin: "1234"}.Validate())
	assert.Contains(t, UpdateOwnerPinRequest{OwnerPin: "123"}.Validate(), "ownerPin")
}

func TestApproveCommissionRequest_Validate(t *testing.T) {
	assert.Empty(t, ApproveCommissionRequest{CommissionID: uuid.NewString()}.Validate())
	assert.Contains(t, ApproveCommissionRequest{}.Validate(), "commissionId")
	assert.Contains(t, ApproveCommissionRequest{CommissionID: "42"}.Validate(), "commissionId")
}

func TestSettingsRequest_Validate(t *testing.T) {
	empty := ""
	name := "Aurora"
	assert.Empty(t, SettingsRequest{}.Validate())
	assert.Empty(t, SettingsRequest{ThemeNameLight: &name}.Validate())
	assert.Contains(t, SettingsRequest{ThemeNameDark: &empty}.Validate(), "themeNameDark")
}

func TestPaginationParams(t *testing.T) {
	p := PaginationParams{Page: 0, PerPage: 500}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PerPage)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 3, p.TotalPages(201))
}

func TestNewUserDTO(t *testing.T) {
	now := time.Now()
	trialEnd := now.Add(time.Hour)

	t.Run("letter avatar when no image", func(t *testing.T) {
		u := &models.User{Name: "ana", Email: "ana@chronos.test", TrialEndsAt: &trialEnd}
		got := NewUserDTO(u, "ACTIVE", now)
		assert.Equal(t, "A", got.Avatar.Letter)
		assert.NotEmpty(t, got.Avatar.ColorClass)
		assert.Equal(t, "letter-avatar:A:"+got.Avatar.ColorClass, got.Avatar.Marker)
		assert.True(t, got.TrialActive)
		assert.Equal(t, "ACTIVE", got.SubscriptionStatus)
	})

	t.Run("url avatar", func(t *testing.T) {
		u := &models.User{Name: "ana", Image: "https://img.test/a.png"}
		got := NewUserDTO(u, "", now)
		assert.Equal(t, "https://img.test/a.png", got.Avatar.URL)
		assert.Empty(t, got.Avatar.Letter)
		assert.False(t, got.TrialActive)
	})
}
