package handlers

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/api/middleware"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/internal/storage"
)

// SessionCookies controls the cookies set on sign-in.
type SessionCookies struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	authService *auth.Service
	billing     *billing.Service
	avatars     storage.AvatarStore
	logger      *slog.Logger
	cookies     SessionCookies
}

// NewAuthHandler wires the account endpoints. avatars may be nil, in which
// case uploads answer 503.
func NewAuthHandler(authService *auth.Service, billingService *billing.Service, avatars storage.AvatarStore, logger *slog.Logger, cookies SessionCookies) *AuthHandler {
	if cookies.MaxAge <= 0 {
		cookies.MaxAge = 24 * time.Hour
	}
	return &AuthHandler{
		authService: authService,
		billing:     billingService,
		avatars:     avatars,
		logger:      logger,
		cookies:     cookies,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		ReferralCode: referral.FromRequest(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			writeError(w, http.StatusConflict, "User already exists")
		default:
			h.logger.Error("registration failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.startSession(w, r, resp)
	writeJSON(w, http.StatusCreated, h.authResponse(r, resp))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			h.logger.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	h.startSession(w, r, resp)
	writeJSON(w, http.StatusOK, h.authResponse(r, resp))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{middleware.UserEmailCookie, middleware.TokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Logged out"})
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.GoogleLoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.GoogleLogin(r.Context(), auth.GoogleLoginInput{
		Email:        req.Email,
		Name:         req.Name,
		Picture:      req.Picture,
		AccessToken:  req.AccessToken,
		ReferralCode: referral.FromRequest(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrGoogleIdentityMismatch):
			writeError(w, http.StatusUnauthorized, "Google identity could not be verified")
		default:
			h.logger.Error("google login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	if resp.Created {
		h.logger.Info("user created via google", "user_id", resp.User.ID, "referred", resp.User.ReferredByID != nil)
	}

	h.startSession(w, r, resp)
	writeJSON(w, http.StatusOK, h.authResponse(r, resp))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.userDTO(r, user))
}

func (h *AuthHandler) UpdateOwnerPin(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	var req dto.UpdateOwnerPinRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	if err := h.authService.UpdateOwnerPin(r.Context(), user.ID, req.OwnerPin); err != nil {
		h.logger.Error("failed to update owner pin", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update owner PIN")
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Owner PIN updated"})
}

// UploadAvatar stores a multipart "file" image and makes it the user's image.
func (h *AuthHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "Avatar uploads are not configured")
		return
	}

	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAvatarBytes+64<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer file.Close()

	// Trust the bytes, not the client's declared type.
	buffered := bufio.NewReader(file)
	head, _ := buffered.Peek(512)
	contentType := http.DetectContentType(head)

	url, err := h.avatars.PutAvatar(r.Context(), user.ID, contentType, io.Reader(buffered), header.Size)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			writeError(w, http.StatusBadRequest, "Unsupported image type")
		case errors.Is(err, storage.ErrTooLarge):
			writeError(w, http.StatusBadRequest, "Image too large")
		default:
			h.logger.Error("avatar upload failed", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to upload avatar")
		}
		return
	}

	if err := h.authService.SetImage(r.Context(), user.ID, url); err != nil {
		h.logger.Error("failed to store avatar url", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload avatar")
		return
	}
	user.Image = url

	writeJSON(w, http.StatusOK, h.userDTO(r, user))
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, resp *auth.AuthResponse) {
	maxAge := int(h.cookies.MaxAge / time.Second)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.UserEmailCookie,
		Value:    resp.User.Email,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})

	if resp.Token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.TokenCookie,
			Value:    resp.Token,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   maxAge,
		})
	}
}

func (h *AuthHandler) authResponse(r *http.Request, resp *auth.AuthResponse) dto.AuthResponse {
	return dto.AuthResponse{Token: resp.Token, User: h.userDTO(r, resp.User)}
}

func (h *AuthHandler) userDTO(r *http.Request, user *models.User) dto.UserDTO {
	status, err := h.billing.StatusFor(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("failed to load subscription status", "user_id", user.ID, "error", err)
	}
	return dto.NewUserDTO(user, string(status), time.Now())
}
