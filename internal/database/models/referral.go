package models

import (
	"time"

	"github.com/google/uuid"
)

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "PENDING"
	CommissionStatusPaid    CommissionStatus = "PAID"
)

// Referral is the code issued to a referring user. CommissionEarned is a
// running total of PAID commissions in cents; it is only ever incremented in
// the same transaction that flips a commission to PAID.
type Referral struct {
	Base
	ReferrerUserID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"referrer_user_id"`
	Code             string    `gorm:"size:16;uniqueIndex;not null" json:"code"`
	CommissionEarned int64     `gorm:"not null;default:0" json:"commission_earned"`

	Referrer    *User                `gorm:"foreignKey:ReferrerUserID" json:"-"`
	Commissions []ReferralCommission `gorm:"foreignKey:ReferralID" json:"-"`
}

func (Referral) TableName() string {
	return "referrals"
}

type ReferralCommission struct {
	Base
	ReferralID        uuid.UUID        `gorm:"type:uuid;index;not null" json:"referral_id"`
	AmountCents       int64            `gorm:"not null" json:"amount_cents"`
	Status            CommissionStatus `gorm:"not null;index;default:'PENDING'" json:"status"`
	ReferredUserEmail string           `gorm:"not null" json:"referred_user_email"`
	StripeInvoiceID   string           `gorm:"uniqueIndex;not null" json:"stripe_invoice_id"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`

	Referral *Referral `gorm:"foreignKey:ReferralID" json:"-"`
}

func (ReferralCommission) TableName() string {
	return "referral_commissions"
}
