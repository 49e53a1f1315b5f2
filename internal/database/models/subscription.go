package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing  SubscriptionStatus = "TRIALING"
	SubscriptionStatusPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription mirrors the processor's customer/subscription for one user.
// Rows are created by checkout completion and removed only by an admin reset
// once cancelled.
type Subscription struct {
	Base
	UserID               uuid.UUID          `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	StripeCustomerID     *string            `gorm:"index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string             `gorm:"index" json:"stripe_subscription_id,omitempty"`
	StripePriceID        string             `json:"stripe_price_id,omitempty"`
	Status               SubscriptionStatus `gorm:"not null;index" json:"status"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	PaidAt               *time.Time         `json:"paid_at,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) HasCustomer() bool {
	return s.StripeCustomerID != nil && *s.StripeCustomerID != ""
}
