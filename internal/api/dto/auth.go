package dto

import (
	"strings"
	"time"

	"github.com/hugh/chronos/internal/api/validation"
	"github.com/hugh/chronos/internal/avatar"
	"github.com/hugh/chronos/internal/database/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if msg := validation.ValidatePassword(r.Password); msg != "" {
		errors["password"] = msg
	}
	if r.Name == "" {
		errors["name"] = "Name is required"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type GoogleLoginRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Picture     string `json:"picture"`
	AccessToken string `json:"accessToken,omitempty"`
}

func (r GoogleLoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Invalid email format"
	}

	return errors
}

type UpdateOwnerPinRequest struct {
	OwnerPin string `json:"ownerPin"`
}

func (r UpdateOwnerPinRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if msg := validation.ValidateOwnerPin(r.OwnerPin); msg != "" {
		errors["ownerPin"] = msg
	}

	return errors
}

type AvatarDTO struct {
	URL        string `json:"url,omitempty"`
	Letter     string `json:"letter,omitempty"`
	ColorClass string `json:"colorClass,omitempty"`
	Marker     string `json:"marker,omitempty"`
}

type UserDTO struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Image              string     `json:"image"`
	EmailVerified      bool       `json:"emailVerified"`
	IsAdmin            bool       `json:"isAdmin"`
	HasOwnerPin        bool       `json:"hasOwnerPin"`
	TrialEndsAt        *time.Time `json:"trialEndsAt,omitempty"`
	TrialActive        bool       `json:"trialActive"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	Avatar             AvatarDTO  `json:"avatar"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// NewUserDTO renders user for the API. subscriptionStatus is "" when the user
// has no subscription.
func NewUserDTO(user *models.User, subscriptionStatus string, now time.Time) UserDTO {
	img := avatar.Resolve(user.Image, user.Name)

	var av AvatarDTO
	if img.Letter != nil {
		av = AvatarDTO{
			Letter:     img.Letter.Letter,
			ColorClass: img.Letter.ColorClass,
			Marker:     img.Letter.Marker(),
		}
	} else {
		av = AvatarDTO{URL: img.URL}
	}

	return UserDTO{
		ID:                 user.ID.String(),
		Email:              user.Email,
		Name:               user.Name,
		Image:              user.Image,
		EmailVerified:      user.EmailVerified,
		IsAdmin:            user.IsAdmin,
		HasOwnerPin:        user.HasOwnerPin(),
		TrialEndsAt:        user.TrialEndsAt,
		TrialActive:        user.TrialActive(now),
		SubscriptionStatus: subscriptionStatus,
		Avatar:             av,
		CreatedAt:          user.CreatedAt,
	}
}

type AuthResponse struct {
	Token string  `json:"token,omitempty"`
	User  UserDTO `json:"user"`
}
