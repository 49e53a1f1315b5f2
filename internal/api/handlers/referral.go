package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/referral"
)

type ReferralHandler struct {
	authService *auth.Service
	ledger      *referral.Ledger
	logger      *slog.Logger
}

func NewReferralHandler(authService *auth.Service, ledger *referral.Ledger, logger *slog.Logger) *ReferralHandler {
	return &ReferralHandler{
		authService: authService,
		ledger:      ledger,
		logger:      logger,
	}
}

// Capture stores a referral code in the attribution cookie. Malformed codes
// are ignored and still answer 200.
func (h *ReferralHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req dto.CaptureReferralRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cookie, ok := referral.CaptureCookie(strings.TrimSpace(req.Code), time.Now())
	if ok {
		http.SetCookie(w, cookie)
	}

	writeJSON(w, http.StatusOK, dto.CaptureReferralResponse{Captured: ok})
}

// Get returns the caller's code, issuing one on first use, with the ledger.
func (h *ReferralHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	summary, err := h.ledger.Summary(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load referral summary", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load referral")
		return
	}

	commissions := make([]dto.CommissionDTO, len(summary.Commissions))
	for i := range summary.Commissions {
		commissions[i] = dto.NewCommissionDTO(&summary.Commissions[i])
	}

	writeJSON(w, http.StatusOK, dto.ReferralResponse{
		Code:             summary.Code,
		CommissionEarned: summary.CommissionEarned,
		ReferredUsers:    summary.ReferredUsers,
		Commissions:      commissions,
	})
}
