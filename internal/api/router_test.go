package api_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hugh/chronos/internal/analytics"
	"github.com/hugh/chronos/internal/api"
	"github.com/hugh/chronos/internal/api/dto"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/internal/settings"
	"github.com/hugh/chronos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T, jwt *auth.JWTService) (*api.Router, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := auth.NewService(db, testutil.TestEncryptor(t), auth.Options{JWT: jwt, TrialPeriod: 14 * 24 * time.Hour})
	ledger := referral.NewLedger(db, 30)

	cfg := api.RouterConfig{
		DB:            db,
		Logger:        logger,
		AuthService:   authService,
		Billing:       billing.NewService(db, nil, billing.Prices{}, "http://localhost:3000"),
		Ledger:        ledger,
		Settings:      settings.NewStore(db),
		Analytics:     analytics.NewService(db, ledger),
		RateLimitReqs: 1000,
		RateLimitSecs: 60,
	}
	if jwt != nil {
		cfg.Tokens = jwt
	}

	return api.NewRouter(cfg), db
}

func TestRouter_HeaderMode(t *testing.T) {
	router, db := newTestRouter(t, nil)
	user := testutil.CreateTestUser(t, db)

	t.Run("admin routes answer 401 before 403", func(t *testing.T) {
		for _, path := range []string{"/admin/approve-commission", "/admin/reset-subscription", "/admin/cleanup-subscriptions"} {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, testutil.AsUser(t, "POST", path, nil, ""))
			assert.Equal(t, http.StatusUnauthorized, rr.Code, path)

			rr = httptest.NewRecorder()
			router.ServeHTTP(rr, testutil.AsUser(t, "POST", path, map[string]string{"userEmail": user.Email}, user.Email))
			assert.Equal(t, http.StatusForbidden, rr.Code, path)
		}
	})

	t.Run("grant access is outside the admin gate", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, testutil.AsUser(t, "POST", "/admin/grant-access",
			map[string]string{"email": user.Email, "ownerPin": "1234"}, user.Email))
		// No PIN set yet, so the handler itself refuses.
		testutil.AssertStatus(t, rr, http.StatusForbidden)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Owner PIN not set", resp.Error)
	})

	t.Run("settings round trip", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, testutil.AsUser(t, "GET", "/settings", nil, user.Email))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.SettingsResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Padrão", resp.ThemeNameDark)
	})

	t.Run("portal without processor", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, testutil.AsUser(t, "POST", "/stripe/create-portal", nil, user.Email))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("ref query captured on any route", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/health?ref=CHRONOS-QRY01", nil))

		var found bool
		for _, c := range rr.Result().Cookies() {
			if c.Name == referral.CookieName && c.Value == "CHRONOS-QRY01" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("dashboard guard", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/dashboard/settings", nil))
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	})

	t.Run("readiness probe", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/ready", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})
}

func TestRouter_JWTMode(t *testing.T) {
	jwt := testutil.CreateTestJWTService()
	router, db := newTestRouter(t, jwt)
	user := testutil.CreateTestUser(t, db)

	t.Run("identity header is ignored", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, testutil.AsUser(t, "GET", "/auth/me", nil, user.Email))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("bearer token authenticates", func(t *testing.T) {
		token := testutil.GenerateTestToken(t, jwt, user)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, testutil.WithBearer(t, "GET", "/auth/me", nil, token))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, user.Email, resp.Email)
	})

	t.Run("login issues token cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, testutil.JSONRequest(t, "POST", "/auth/login", map[string]string{
			"email":    user.Email,
			"password": "testpassword123",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.NotEmpty(t, resp.Token)

		var tokenCookie *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "token" {
				tokenCookie = c
			}
		}
		require.NotNil(t, tokenCookie)

		// Cookie-authenticated mutations need the CSRF token.
		req := testutil.JSONRequest(t, "PUT", "/settings", map[string]string{"themeNameLight": "Aurora"})
		req.AddCookie(tokenCookie)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}
