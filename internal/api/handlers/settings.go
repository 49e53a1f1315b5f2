package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/hugh/chronos/internal/settings"
)

type SettingsHandler struct {
	authService *auth.Service
	store       *settings.Store
	logger      *slog.Logger
}

func NewSettingsHandler(authService *auth.Service, store *settings.Store, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		authService: authService,
		store:       store,
		logger:      logger,
	}
}

// Get returns the caller's settings, creating the defaults on first access.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	s, err := h.store.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load settings", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}

func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	var req dto.SettingsRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	s, err := h.store.Upsert(r.Context(), user.ID, settings.Patch{
		ThemeNameLight: req.ThemeNameLight,
		ThemeNameDark:  req.ThemeNameDark,
	})
	if err != nil {
		h.logger.Error("failed to save settings", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(s))
}

func toSettingsResponse(s *models.Settings) dto.SettingsResponse {
	return dto.SettingsResponse{
		ThemeNameLight: s.ThemeNameLight,
		ThemeNameDark:  s.ThemeNameDark,
	}
}
