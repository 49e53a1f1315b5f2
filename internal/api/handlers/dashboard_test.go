package handlers_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/chronos/internal/analytics"
	"github.com/hugh/chronos/internal/api/handlers"
	"github.com/hugh/chronos/internal/api/middleware"
	"github.com/hugh/chronos/internal/testutil"
	"github.com/stretchr/testify/assert"
)

// stubRenderer writes the page name and, for the dashboard, the referral count.
type stubRenderer struct{}

func (stubRenderer) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	if m, ok := data.(map[string]interface{}); ok {
		if s, ok := m["Stats"].(*analytics.UserStats); ok {
			_, err := fmt.Fprintf(w, "%s referred=%d", name, s.ReferredUsers)
			return err
		}
	}
	_, err := io.WriteString(w, name)
	return err
}

func setupDashboardTestRouter(t *testing.T) (*chi.Mux, *testEnv) {
	env := newTestEnv(t)
	handler := handlers.NewDashboardHandler(env.Auth, analytics.NewService(env.DB, env.Ledger), stubRenderer{}, true, env.Logger)

	r := chi.NewRouter()
	r.Use(middleware.HeaderIdentity())
	r.Get("/login", handler.Login)
	r.With(middleware.DashboardGuard).Get("/dashboard", handler.Index)
	r.With(middleware.RequireIdentity).Get("/dashboard/stats", handler.Stats)

	return r, env
}

func TestDashboardHandler_Index(t *testing.T) {
	router, env := setupDashboardTestRouter(t)
	user := testutil.CreateTestUser(t, env.DB)

	t.Run("redirects without cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/dashboard", nil))
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	})

	t.Run("unknown cookie user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: middleware.UserEmailCookie, Value: "ghost@example.com"})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
	})

	t.Run("renders for cookie user", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: middleware.UserEmailCookie, Value: user.Email})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, "dashboard.html referred=0", rr.Body.String())
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	})
}

func TestDashboardHandler_Login(t *testing.T) {
	router, _ := setupDashboardTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/login", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "login.html", rr.Body.String())
}

func TestDashboardHandler_Stats(t *testing.T) {
	router, env := setupDashboardTestRouter(t)
	user := testutil.CreateTestUser(t, env.DB)
	testutil.CreateTestReferral(t, env.DB, user.ID, "CHRONOS-DSH01")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AsUser(t, "GET", "/dashboard/stats", nil, user.Email))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var stats analytics.UserStats
	testutil.ParseJSONResponse(t, rr, &stats)
	assert.Equal(t, "CHRONOS-DSH01", stats.ReferralCode)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, testutil.AsUser(t, "GET", "/dashboard/stats", nil, ""))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
