package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// InvoicePaid describes a settled invoice that may owe a referral commission.
type InvoicePaid struct {
	CustomerEmail   string
	InvoiceID       string
	AmountPaidCents int64
}

// ParseEvent verifies the Stripe-Signature header against secret and decodes
// the event.
func ParseEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// MapStatus folds the processor's subscription states onto ours.
func MapStatus(status stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return models.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionStatusCancelled
	default:
		return models.SubscriptionStatusPastDue
	}
}

// HandleEvent applies a verified event to local subscription state. A
// non-nil InvoicePaid is returned for invoice.paid so the caller can accrue
// commission. Unhandled event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) (*InvoicePaid, error) {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decoding checkout session: %w", err)
		}
		return nil, s.syncCheckout(ctx, &sess)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decoding subscription: %w", err)
		}
		return nil, s.syncSubscription(ctx, &sub)

	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decoding invoice: %w", err)
		}
		return s.syncInvoice(ctx, &inv)
	}

	return nil, nil
}

func (s *Service) syncCheckout(ctx context.Context, sess *stripe.CheckoutSession) error {
	if sess.Customer == nil || sess.Customer.ID == "" {
		return ErrCustomerNotFound
	}

	userID, err := s.checkoutUser(ctx, sess)
	if err != nil {
		return err
	}

	customerID := sess.Customer.ID
	sub := models.Subscription{
		UserID:           userID,
		StripeCustomerID: &customerID,
		Status:           models.SubscriptionStatusActive,
	}
	columns := []string{"stripe_customer_id", "status", "updated_at"}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		sub.StripeSubscriptionID = sess.Subscription.ID
		columns = append(columns, "stripe_subscription_id")
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&sub).Error
}

func (s *Service) checkoutUser(ctx context.Context, sess *stripe.CheckoutSession) (uuid.UUID, error) {
	if id, err := uuid.Parse(sess.ClientReferenceID); err == nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return uuid.Nil, err
		}
		if count == 1 {
			return id, nil
		}
	}

	email := sess.CustomerEmail
	if email == "" && sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	if email == "" {
		return uuid.Nil, ErrUserNotFound
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (s *Service) syncSubscription(ctx context.Context, remote *stripe.Subscription) error {
	local, err := s.byProcessorIDs(ctx, remote.ID, customerID(remote.Customer))
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":                 MapStatus(remote.Status),
		"stripe_subscription_id": remote.ID,
	}
	if remote.CurrentPeriodEnd > 0 {
		updates["current_period_end"] = time.Unix(remote.CurrentPeriodEnd, 0).UTC()
	}
	if remote.Items != nil && len(remote.Items.Data) > 0 && remote.Items.Data[0].Price != nil {
		updates["stripe_price_id"] = remote.Items.Data[0].Price.ID
	}

	return s.db.WithContext(ctx).Model(local).Updates(updates).Error
}

func (s *Service) syncInvoice(ctx context.Context, inv *stripe.Invoice) (*InvoicePaid, error) {
	subID := ""
	if inv.Subscription != nil {
		subID = inv.Subscription.ID
	}

	local, err := s.byProcessorIDs(ctx, subID, customerID(inv.Customer))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(local).Updates(map[string]interface{}{
		"paid_at": now,
		"status":  models.SubscriptionStatusActive,
	}).Error; err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", local.UserID).Error; err != nil {
		return nil, err
	}

	return &InvoicePaid{
		CustomerEmail:   user.Email,
		InvoiceID:       inv.ID,
		AmountPaidCents: inv.AmountPaid,
	}, nil
}

func (s *Service) byProcessorIDs(ctx context.Context, subscriptionID, customer string) (*models.Subscription, error) {
	db := s.db.WithContext(ctx)

	var sub models.Subscription
	var err error
	switch {
	case subscriptionID != "":
		err = db.Where("stripe_subscription_id = ?", subscriptionID).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) && customer != "" {
			err = db.Where("stripe_customer_id = ?", customer).First(&sub).Error
		}
	case customer != "":
		err = db.Where("stripe_customer_id = ?", customer).First(&sub).Error
	default:
		return nil, ErrSubscriptionNotFound
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
