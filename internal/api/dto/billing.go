package dto

import "time"

type CreatePortalRequest struct {
	UserEmail string `json:"userEmail"`
}

type CreateCheckoutRequest struct {
	Plan string `json:"plan"`
}

func (r CreateCheckoutRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Plan == "" {
		errors["plan"] = "Plan is required"
	}

	return errors
}

type URLResponse struct {
	URL string `json:"url"`
}

type SubscriptionResponse struct {
	Status           string     `json:"status"`
	HasCustomer      bool       `json:"hasCustomer"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
}
