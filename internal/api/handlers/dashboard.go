package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hugh/chronos/internal/analytics"
	"github.com/hugh/chronos/internal/api/middleware"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/avatar"
)

// Renderer executes a named page template.
type Renderer interface {
	ExecuteTemplate(w io.Writer, name string, data interface{}) error
}

type DashboardHandler struct {
	authService    *auth.Service
	analytics      *analytics.Service
	templates      Renderer
	cookieIdentity bool
	logger         *slog.Logger
}

// NewDashboardHandler builds the HTML pages. With cookieIdentity the
// user_email cookie names the user when the request carries no identity.
func NewDashboardHandler(authService *auth.Service, analyticsService *analytics.Service, templates Renderer, cookieIdentity bool, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		authService:    authService,
		analytics:      analyticsService,
		templates:      templates,
		cookieIdentity: cookieIdentity,
		logger:         logger,
	}
}

func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetUserEmail(r.Context())
	if email == "" && h.cookieIdentity {
		if cookie, err := r.Cookie(middleware.UserEmailCookie); err == nil {
			email = cookie.Value
		}
	}
	if email == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.authService.GetUserByEmail(r.Context(), email)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	stats, err := h.analytics.ForUser(r.Context(), user)
	if err != nil {
		h.logger.Error("failed to compute dashboard stats", "user_id", user.ID, "error", err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	data := map[string]interface{}{
		"User":        user,
		"Avatar":      avatar.Resolve(user.Image, user.Name),
		"Stats":       stats,
		"TrialActive": user.TrialActive(time.Now()),
	}

	h.render(w, "dashboard.html", data)
}

func (h *DashboardHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", nil)
}

// Stats is the JSON counterpart of the dashboard counters.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.authService)
	if !ok {
		return
	}

	stats, err := h.analytics.ForUser(r.Context(), user)
	if err != nil {
		h.logger.Error("failed to compute dashboard stats", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) render(w http.ResponseWriter, name string, data interface{}) {
	if h.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
