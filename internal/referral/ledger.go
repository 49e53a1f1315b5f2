package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCommissionNotFound = errors.New("commission not found")
	ErrAlreadyPaid        = errors.New("commission already paid")
	ErrReferralNotFound   = errors.New("referral not found")
	ErrNotReferred        = errors.New("user was not referred")
	ErrCodeExhausted      = errors.New("could not allocate a unique referral code")
)

const maxCodeAttempts = 5

// Ledger owns referral codes and the commission ledger.
type Ledger struct {
	db      *gorm.DB
	percent int
	now     func() time.Time
}

func NewLedger(db *gorm.DB, commissionPercent int) *Ledger {
	return &Ledger{db: db, percent: commissionPercent, now: time.Now}
}

type Summary struct {
	Code             string                      `json:"code"`
	CommissionEarned int64                       `json:"commissionEarned"`
	ReferredUsers    int64                       `json:"referredUsers"`
	Commissions      []models.ReferralCommission `json:"commissions"`
}

// EnsureReferral returns the referral owned by userID, issuing a fresh code
// on first use.
func (l *Ledger) EnsureReferral(ctx context.Context, userID uuid.UUID) (*models.Referral, error) {
	db := l.db.WithContext(ctx)

	var ref models.Referral
	err := db.Where("referrer_user_id = ?", userID).First(&ref).Error
	if err == nil {
		return &ref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}

		ref := models.Referral{ReferrerUserID: userID, Code: code}
		err = db.Create(&ref).Error
		if err == nil {
			return &ref, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("creating referral: %w", err)
		}

		// Either a concurrent request issued this user's code or the code
		// collided with another user's.
		var existing models.Referral
		err = db.Where("referrer_user_id = ?", userID).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, ErrCodeExhausted
}

func (l *Ledger) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	ref, err := l.EnsureReferral(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := l.db.WithContext(ctx)
	summary := &Summary{Code: ref.Code, CommissionEarned: ref.CommissionEarned}

	if err := db.Model(&models.User{}).
		Where("referred_by_id = ?", ref.ID).
		Count(&summary.ReferredUsers).Error; err != nil {
		return nil, err
	}

	if err := db.Where("referral_id = ?", ref.ID).
		Order("created_at DESC").
		Find(&summary.Commissions).Error; err != nil {
		return nil, err
	}

	return summary, nil
}

type AccrualInput struct {
	ReferredUserEmail string
	InvoiceID         string
	AmountPaidCents   int64
}

// Accrue records a PENDING commission for an invoice paid by a referred user.
// Replays of the same invoice return the existing row with created=false.
func (l *Ledger) Accrue(ctx context.Context, input AccrualInput) (*models.ReferralCommission, bool, error) {
	db := l.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", input.ReferredUserEmail).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotReferred
		}
		return nil, false, err
	}
	if user.ReferredByID == nil {
		return nil, false, ErrNotReferred
	}

	commission := models.ReferralCommission{
		ReferralID:        *user.ReferredByID,
		AmountCents:       input.AmountPaidCents * int64(l.percent) / 100,
		Status:            models.CommissionStatusPending,
		ReferredUserEmail: user.Email,
		StripeInvoiceID:   input.InvoiceID,
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_invoice_id"}},
		DoNothing: true,
	}).Create(&commission)
	if res.Error != nil {
		return nil, false, fmt.Errorf("recording commission: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return &commission, true, nil
	}

	var existing models.ReferralCommission
	if err := db.Where("stripe_invoice_id = ?", input.InvoiceID).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// ApproveCommission marks a PENDING commission PAID and adds its amount to the
// parent referral's running total in one transaction. The conditional update
// means concurrent approvals of the same id apply the amount exactly once;
// the loser sees ErrAlreadyPaid.
func (l *Ledger) ApproveCommission(ctx context.Context, id uuid.UUID) (*models.ReferralCommission, error) {
	var commission models.ReferralCommission

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ReferralCommission{}).
			Where("id = ? AND status = ?", id, models.CommissionStatusPending).
			Updates(map[string]interface{}{
				"status":  models.CommissionStatusPaid,
				"paid_at": l.now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}

		if err := tx.First(&commission, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommissionNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyPaid
		}

		res = tx.Model(&models.Referral{}).
			Where("id = ?", commission.ReferralID).
			Update("commission_earned", gorm.Expr("commission_earned + ?", commission.AmountCents))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReferralNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &commission, nil
}

type ListFilter struct {
	Status models.CommissionStatus
	Limit  int
	Offset int
}

func (l *Ledger) ListCommissions(ctx context.Context, filter ListFilter) ([]models.ReferralCommission, int64, error) {
	query := l.db.WithContext(ctx).Model(&models.ReferralCommission{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var commissions []models.ReferralCommission
	if err := query.Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&commissions).Error; err != nil {
		return nil, 0, err
	}

	return commissions, total, nil
}

// CommissionTotal sums commissions in status across all referrals, or for
// one referral when referralID is non-nil.
func (l *Ledger) CommissionTotal(ctx context.Context, status models.CommissionStatus, referralID *uuid.UUID) (int64, error) {
	query := l.db.WithContext(ctx).Model(&models.ReferralCommission{}).
		Where("status = ?", status)
	if referralID != nil {
		query = query.Where("referral_id = ?", *referralID)
	}

	var total int64
	if err := query.Select("COALESCE(SUM(amount_cents), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
