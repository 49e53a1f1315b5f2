package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrNotConfigured        = errors.New("billing not configured")
)

const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Prices maps plan names to processor price IDs.
type Prices struct {
	Monthly string
	Yearly  string
}

func (p Prices) For(plan string) (string, error) {
	var id string
	switch plan {
	case PlanMonthly:
		id = p.Monthly
	case PlanYearly:
		id = p.Yearly
	default:
		return "", ErrUnknownPlan
	}
	if id == "" {
		return "", ErrNotConfigured
	}
	return id, nil
}

type Service struct {
	db          *gorm.DB
	gateway     Gateway
	prices      Prices
	frontendURL string
	now         func() time.Time
}

// NewService builds the billing service. gateway may be nil when no processor
// key is configured; portal and checkout then fail with ErrNotConfigured.
func NewService(db *gorm.DB, gateway Gateway, prices Prices, frontendURL string) *Service {
	return &Service{
		db:          db,
		gateway:     gateway,
		prices:      prices,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// StatusFor returns the user's subscription status, or "" when there is none.
func (s *Service) StatusFor(ctx context.Context, userID uuid.UUID) (models.SubscriptionStatus, error) {
	sub, err := s.ForUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sub.Status, nil
}

type ResetResult struct {
	Deleted bool
	Status  models.SubscriptionStatus
}

// Reset removes the user's subscription only when it is CANCELLED. Any other
// status, or no subscription, is left alone and reported back.
func (s *Service) Reset(ctx context.Context, email string) (*ResetResult, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var result ResetResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("user_id = ?", user.ID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		result.Status = sub.Status
		if sub.Status != models.SubscriptionStatusCancelled {
			return nil
		}

		res := tx.Where("id = ? AND status = ?", sub.ID, models.SubscriptionStatusCancelled).
			Delete(&models.Subscription{})
		if res.Error != nil {
			return res.Error
		}
		result.Deleted = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

type CleanupReport struct {
	HasSubscription bool
	Status          models.SubscriptionStatus
}

// Cleanup reports the user's subscription state without changing it.
func (s *Service) Cleanup(ctx context.Context, email string) (*CleanupReport, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	status, err := s.StatusFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &CleanupReport{HasSubscription: status != "", Status: status}, nil
}

// PortalURL opens a billing-portal session for the user's processor customer.
func (s *Service) PortalURL(ctx context.Context, userID uuid.UUID) (string, error) {
	sub, err := s.ForUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return "", ErrCustomerNotFound
	}
	if err != nil {
		return "", err
	}
	if !sub.HasCustomer() {
		return "", ErrCustomerNotFound
	}
	if s.gateway == nil {
		return "", ErrNotConfigured
	}

	url, err := s.gateway.CreatePortalSession(ctx, *sub.StripeCustomerID, s.frontendURL+"/dashboard/settings")
	if err != nil {
		return "", fmt.Errorf("creating portal session: %w", err)
	}
	return url, nil
}

// Checkout opens a subscription checkout for plan, reusing the user's
// processor customer when one is on file.
func (s *Service) Checkout(ctx context.Context, user *models.User, plan string) (string, error) {
	priceID, err := s.prices.For(plan)
	if err != nil {
		return "", err
	}
	if s.gateway == nil {
		return "", ErrNotConfigured
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:        customerID,
		PriceID:           priceID,
		ClientReferenceID: user.ID.String(),
		SuccessURL:        s.frontendURL + "/dashboard?checkout=success",
		CancelURL:         s.frontendURL + "/dashboard?checkout=cancelled",
	})
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}
	return url, nil
}

// ensureCustomer returns the user's processor customer, creating and
// recording one when neither the subscription nor the user carries it.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	sub, err := s.ForUser(ctx, user.ID)
	switch {
	case err == nil && sub.HasCustomer():
		return *sub.StripeCustomerID, nil
	case err != nil && !errors.Is(err, ErrSubscriptionNotFound):
		return "", err
	}

	if id, err := s.userCustomer(ctx, user.ID); err != nil || id != "" {
		return id, err
	}

	created, err := s.gateway.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", fmt.Errorf("creating customer: %w", err)
	}

	// A concurrent checkout may have recorded its customer first; keep that one.
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = '')", user.ID).
		Update("stripe_customer_id", created)
	if res.Error != nil {
		return "", fmt.Errorf("recording customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if id, err := s.userCustomer(ctx, user.ID); err != nil || id != "" {
			return id, err
		}
	}

	if sub != nil {
		if err := s.db.WithContext(ctx).Model(sub).Update("stripe_customer_id", created).Error; err != nil {
			return "", fmt.Errorf("recording customer: %w", err)
		}
	}
	user.StripeCustomerID = &created
	return created, nil
}

func (s *Service) userCustomer(ctx context.Context, userID uuid.UUID) (string, error) {
	var u models.User
	err := s.db.WithContext(ctx).Select("id", "stripe_customer_id").First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if u.StripeCustomerID == nil {
		return "", nil
	}
	return *u.StripeCustomerID, nil
}

// ExpireTrials moves TRIALING subscriptions whose period has ended to
// PAST_DUE and returns how many rows changed.
func (s *Service) ExpireTrials(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND current_period_end IS NOT NULL AND current_period_end < ?",
			models.SubscriptionStatusTrialing, s.now().UTC()).
		Update("status", models.SubscriptionStatusPastDue)
	return res.RowsAffected, res.Error
}

func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
