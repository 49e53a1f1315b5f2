package dto

type CaptureReferralRequest struct {
	Code string `json:"code"`
}

type CaptureReferralResponse struct {
	Captured bool `json:"captured"`
}

type ReferralResponse struct {
	Code             string          `json:"code"`
	CommissionEarned int64           `json:"commissionEarned"`
	ReferredUsers    int64           `json:"referredUsers"`
	Commissions      []CommissionDTO `json:"commissions"`
}
