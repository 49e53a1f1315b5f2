package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/tasks"
)

const maxWebhookBytes = 64 << 10

// CommissionDispatcher queues commission accrual for a paid invoice.
type CommissionDispatcher interface {
	AccrueCommission(ctx context.Context, payload tasks.CommissionAccruePayload) error
}

type StripeHandler struct {
	authService   *auth.Service
	billing       *billing.Service
	dispatcher    CommissionDispatcher
	webhookSecret string
	logger        *slog.Logger
}

func NewStripeHandler(authService *auth.Service, billingService *billing.Service, dispatcher CommissionDispatcher, webhookSecret string, logger *slog.Logger) *StripeHandler {
	return &StripeHandler{
		authService:   authService,
		billing:       billingService,
		dispatcher:    dispatcher,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// CreatePortal opens a billing-portal session. The body email defaults to the
// caller; only admins may open a portal for someone else.
func (h *StripeHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	var req dto.CreatePortalRequest
	if err := decodeJSON(w, r, &req, false); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	target := caller
	if email := auth.NormalizeEmail(req.UserEmail); email != "" && email != caller.Email {
		if !caller.IsAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		user, err := h.authService.GetUserByEmail(r.Context(), email)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "User not found")
			} else {
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
			return
		}
		target = user
	}

	url, err := h.billing.PortalURL(r.Context(), target.ID)
	if err != nil {
		h.writeBillingError(w, "portal session failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.URLResponse{URL: url})
}

func (h *StripeHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	var req dto.CreateCheckoutRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	url, err := h.billing.Checkout(r.Context(), user, req.Plan)
	if err != nil {
		h.writeBillingError(w, "checkout session failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.URLResponse{URL: url})
}

func (h *StripeHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	sub, err := h.billing.ForUser(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			writeJSON(w, http.StatusOK, dto.SubscriptionResponse{})
			return
		}
		h.logger.Error("failed to load subscription", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load subscription")
		return
	}

	writeJSON(w, http.StatusOK, dto.SubscriptionResponse{
		Status:           string(sub.Status),
		HasCustomer:      sub.HasCustomer(),
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		PaidAt:           sub.PaidAt,
	})
}

// Webhook applies signed processor events. Events that reference unknown
// customers are acknowledged so the processor stops redelivering them.
func (h *StripeHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" {
		writeError(w, http.StatusServiceUnavailable, "Webhook not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := billing.ParseEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("rejected webhook", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	paid, err := h.billing.HandleEvent(r.Context(), event)
	switch {
	case err == nil:
	case errors.Is(err, billing.ErrSubscriptionNotFound),
		errors.Is(err, billing.ErrCustomerNotFound),
		errors.Is(err, billing.ErrUserNotFound):
		h.logger.Warn("webhook references unknown subscription", "event_id", event.ID, "type", event.Type, "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	default:
		h.logger.Error("webhook handling failed", "event_id", event.ID, "type", event.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "Webhook handling failed")
		return
	}

	if paid != nil && h.dispatcher != nil {
		if err := h.dispatcher.AccrueCommission(r.Context(), tasks.CommissionAccruePayload{
			ReferredUserEmail: paid.CustomerEmail,
			InvoiceID:         paid.InvoiceID,
			AmountPaidCents:   paid.AmountPaidCents,
		}); err != nil {
			h.logger.Error("commission accrual failed", "invoice_id", paid.InvoiceID, "error", err)
			writeError(w, http.StatusInternalServerError, "Webhook handling failed")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *StripeHandler) writeBillingError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, billing.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "Customer not found")
	case errors.Is(err, billing.ErrUnknownPlan):
		writeError(w, http.StatusBadRequest, "Unknown plan")
	case errors.Is(err, billing.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Billing is not configured")
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
