// Package analytics computes the counters shown on the user and admin
// dashboards.
package analytics

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/hugh/chronos/internal/database/models"
	"github.com/hugh/chronos/internal/referral"
	"gorm.io/gorm"
)

type UserStats struct {
	ReferralCode       string `json:"referralCode,omitempty"`
	ReferredUsers      int64  `json:"referredUsers"`
	PendingCents       int64  `json:"pendingCommissionCents"`
	PaidCents          int64  `json:"paidCommissionCents"`
	TrialDaysLeft      int    `json:"trialDaysLeft"`
	SubscriptionStatus string `json:"subscriptionStatus"`
}

type AdminStats struct {
	Users                  int64            `json:"users"`
	Admins                 int64            `json:"admins"`
	SubscriptionsByStatus  map[string]int64 `json:"subscriptionsByStatus"`
	PendingCommissionCents int64            `json:"pendingCommissionCents"`
	PaidCommissionCents    int64            `json:"paidCommissionCents"`
}

type Service struct {
	db     *gorm.DB
	ledger *referral.Ledger
	now    func() time.Time
}

func NewService(db *gorm.DB, ledger *referral.Ledger) *Service {
	return &Service{db: db, ledger: ledger, now: time.Now}
}

func (s *Service) ForUser(ctx context.Context, user *models.User) (*UserStats, error) {
	db := s.db.WithContext(ctx)
	stats := &UserStats{TrialDaysLeft: TrialDaysLeft(user, s.now())}

	var sub models.Subscription
	err := db.Where("user_id = ?", user.ID).First(&sub).Error
	switch {
	case err == nil:
		stats.SubscriptionStatus = string(sub.Status)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var ref models.Referral
	err = db.Where("referrer_user_id = ?", user.ID).First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	stats.ReferralCode = ref.Code
	stats.PaidCents = ref.CommissionEarned

	if err := db.Model(&models.User{}).Where("referred_by_id = ?", ref.ID).
		Count(&stats.ReferredUsers).Error; err != nil {
		return nil, err
	}
	if stats.PendingCents, err = s.ledger.CommissionTotal(ctx, models.CommissionStatusPending, &ref.ID); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Service) Admin(ctx context.Context) (*AdminStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminStats{SubscriptionsByStatus: make(map[string]int64)}

	if err := db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&stats.Admins).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Subscription{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.SubscriptionsByStatus[r.Status] = r.Count
	}

	var err error
	if stats.PendingCommissionCents, err = s.ledger.CommissionTotal(ctx, models.CommissionStatusPending, nil); err != nil {
		return nil, err
	}
	if stats.PaidCommissionCents, err = s.ledger.CommissionTotal(ctx, models.CommissionStatusPaid, nil); err != nil {
		return nil, err
	}

	return stats, nil
}

// TrialDaysLeft rounds the remaining trial up to whole days; zero once the
// trial has ended or when the user never had one.
func TrialDaysLeft(user *models.User, now time.Time) int {
	if !user.TrialActive(now) {
		return 0
	}
	return int(math.Ceil(user.TrialEndsAt.Sub(now).Hours() / 24))
}
