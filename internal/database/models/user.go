package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Base
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string     `json:"-"`
	Name          string     `json:"name"`
	Image         string     `json:"image,omitempty"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	IsAdmin       bool       `gorm:"default:false;not null" json:"is_admin"`
	OwnerPinEnc   string     `gorm:"type:text" json:"-"` // age-sealed owner PIN
	TrialEndsAt   *time.Time `json:"trial_ends_at,omitempty"`
	ReferredByID  *uuid.UUID `gorm:"type:uuid;index" json:"referred_by_id,omitempty"`

	// Processor customer opened by checkout before any subscription exists.
	StripeCustomerID *string `gorm:"index" json:"-"`

	// Relationships
	Settings     *Settings     `gorm:"foreignKey:UserID" json:"-"`
	Subscription *Subscription `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) HasOwnerPin() bool {
	return u.OwnerPinEnc != ""
}

// TrialActive reports whether the trial window is still open at now.
func (u *User) TrialActive(now time.Time) bool {
	return u.TrialEndsAt != nil && now.Before(*u.TrialEndsAt)
}
