package dto

import (
	"strings"
	"time"

	"github.com/hugh/chronos/internal/api/validation"
	"github.com/hugh/chronos/internal/database/models"
)

type GrantAccessRequest struct {
	Email    string `json:"email"`
	OwnerPin string `json:"ownerPin"`
}

func (r GrantAccessRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	if r.OwnerPin == "" {
		errors["ownerPin"] = "Owner PIN is required"
	}

	return errors
}

type ApproveCommissionRequest struct {
	CommissionID string `json:"commissionId"`
}

func (r ApproveCommissionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.CommissionID == "" {
		errors["commissionId"] = "Commission ID is required"
	} else if !validation.IsValidUUID(r.CommissionID) {
		errors["commissionId"] = "Invalid commission ID"
	}

	return errors
}

// UserEmailRequest is the body of the subscription maintenance endpoints.
type UserEmailRequest struct {
	UserEmail string `json:"userEmail"`
}

func (r UserEmailRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.UserEmail == "" {
		errors["userEmail"] = "User email is required"
	}

	return errors
}

type ResetSubscriptionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
	Status  string `json:"status"`
}

type CleanupSubscriptionResponse struct {
	Success         bool   `json:"success"`
	HasSubscription bool   `json:"hasSubscription"`
	Status          string `json:"status"`
}

type CommissionDTO struct {
	ID                string     `json:"id"`
	ReferralID        string     `json:"referralId"`
	AmountCents       int64      `json:"amountCents"`
	Status            string     `json:"status"`
	ReferredUserEmail string     `json:"referredUserEmail"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func NewCommissionDTO(c *models.ReferralCommission) CommissionDTO {
	return CommissionDTO{
		ID:                c.ID.String(),
		ReferralID:        c.ReferralID.String(),
		AmountCents:       c.AmountCents,
		Status:            string(c.Status),
		ReferredUserEmail: c.ReferredUserEmail,
		PaidAt:            c.PaidAt,
		CreatedAt:         c.CreatedAt,
	}
}

type ApproveCommissionResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Commission CommissionDTO `json:"commission"`
}
