package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/analytics"
	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/hugh/chronos/internal/referral"
)

type AdminHandler struct {
	authService *auth.Service
	ledger      *referral.Ledger
	billing     *billing.Service
	analytics   *analytics.Service
	logger      *slog.Logger
}

func NewAdminHandler(authService *auth.Service, ledger *referral.Ledger, billingService *billing.Service, analyticsService *analytics.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		ledger:      ledger,
		billing:     billingService,
		analytics:   analyticsService,
		logger:      logger,
	}
}

// GrantAccess promotes the caller to admin when the supplied owner PIN
// matches the one stored on their account.
func (h *AdminHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	caller, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	var req dto.GrantAccessRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if email != caller.Email {
		writeError(w, http.StatusForbidden, "Access can only be granted to your own account")
		return
	}

	user, err := h.authService.GrantAdminAccess(r.Context(), email, req.OwnerPin)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, auth.ErrOwnerPinNotSet):
			writeError(w, http.StatusForbidden, "Owner PIN not set")
		case errors.Is(err, auth.ErrInvalidOwnerPin):
			h.logger.Warn("owner pin mismatch", "user_id", caller.ID)
			writeError(w, http.StatusForbidden, "Invalid owner PIN")
		default:
			h.logger.Error("grant access failed", "user_id", caller.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to grant access")
		}
		return
	}

	h.logger.Info("admin access granted", "user_id", user.ID)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Admin access granted"})
}

func (h *AdminHandler) ApproveCommission(w http.ResponseWriter, r *http.Request) {
	var req dto.ApproveCommissionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	id := uuid.MustParse(req.CommissionID)
	commission, err := h.ledger.ApproveCommission(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, referral.ErrCommissionNotFound):
			writeError(w, http.StatusNotFound, "Commission not found")
		case errors.Is(err, referral.ErrAlreadyPaid):
			writeError(w, http.StatusConflict, "Commission already paid")
		default:
			h.logger.Error("commission approval failed", "commission_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to approve commission")
		}
		return
	}

	h.logger.Info("commission approved", "commission_id", id, "amount_cents", commission.AmountCents)
	writeJSON(w, http.StatusOK, dto.ApproveCommissionResponse{
		Success:    true,
		Message:    "Commission approved",
		Commission: dto.NewCommissionDTO(commission),
	})
}

// ResetSubscription removes the user's subscription only when it is cancelled.
func (h *AdminHandler) ResetSubscription(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUserEmail(w, r)
	if !ok {
		return
	}

	result, err := h.billing.Reset(r.Context(), req.UserEmail)
	if err != nil {
		h.writeBillingError(w, "reset subscription failed", err)
		return
	}

	msg := "No cancelled subscription to remove"
	if result.Deleted {
		msg = "Cancelled subscription removed"
	}

	writeJSON(w, http.StatusOK, dto.ResetSubscriptionResponse{
		Success: true,
		Message: msg,
		Deleted: result.Deleted,
		Status:  string(result.Status),
	})
}

func (h *AdminHandler) CleanupSubscriptions(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUserEmail(w, r)
	if !ok {
		return
	}

	report, err := h.billing.Cleanup(r.Context(), req.UserEmail)
	if err != nil {
		h.writeBillingError(w, "subscription cleanup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CleanupSubscriptionResponse{
		Success:         true,
		HasSubscription: report.HasSubscription,
		Status:          string(report.Status),
	})
}

func (h *AdminHandler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	params := dto.PaginationParams{}
	params.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	params.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	params.Normalize()

	filter := referral.ListFilter{Limit: params.PerPage, Offset: params.Offset()}
	switch status := models.CommissionStatus(r.URL.Query().Get("status")); status {
	case "":
	case models.CommissionStatusPending, models.CommissionStatusPaid:
		filter.Status = status
	default:
		writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	commissions, total, err := h.ledger.ListCommissions(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list commissions", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list commissions")
		return
	}

	data := make([]dto.CommissionDTO, len(commissions))
	for i := range commissions {
		data[i] = dto.NewCommissionDTO(&commissions[i])
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: params.TotalPages(total),
	})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Admin(r.Context())
	if err != nil {
		h.logger.Error("failed to compute admin stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) decodeUserEmail(w http.ResponseWriter, r *http.Request) (dto.UserEmailRequest, bool) {
	var req dto.UserEmailRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return req, false
	}
	req.UserEmail = auth.NormalizeEmail(req.UserEmail)
	return req, true
}

func (h *AdminHandler) writeBillingError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, billing.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
