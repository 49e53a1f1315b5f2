package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/hugh/chronos/pkg/crypto"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IdentityHeader mirrors the header the identity middleware reads.
const IdentityHeader = "x-user-email"

// SetupTestDB opens a private in-memory SQLite database with every model
// migrated. A single connection keeps the memory database alive and
// serialises concurrent transactions.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// One connection keeps the shared in-memory database alive but serializes
	// transactions, so concurrency tests here exercise repeat calls rather than
	// true interleaving.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// TestEncryptor returns an Encryptor with a fresh key.
func TestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}
	return enc
}

// CreateTestUser inserts a user with a random email and the password
// "testpassword123".
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithEmail(t, db, "test-"+uuid.NewString()[:8]+"@example.com")
}

func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          "Test User",
		EmailVerified: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	if err := db.Model(user).Update("is_admin", true).Error; err != nil {
		t.Fatalf("failed to promote test admin: %v", err)
	}
	user.IsAdmin = true
	return user
}

// SetOwnerPin seals pin onto user the way the owner-pin endpoint does.
func SetOwnerPin(t *testing.T, db *gorm.DB, enc *crypto.Encryptor, user *models.User, pin string) {
	t.Helper()

	sealed, err := enc.Seal(pin)
	if err != nil {
		t.Fatalf("failed to seal pin: %v", err)
	}
	if err := db.Model(user).Update("owner_pin_enc", sealed).Error; err != nil {
		t.Fatalf("failed to store pin: %v", err)
	}
	user.OwnerPinEnc = sealed
}

func CreateTestSubscription(t *testing.T, db *gorm.DB, userID uuid.UUID, status models.SubscriptionStatus, customerID string) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		UserID:               userID,
		Status:               status,
		StripeSubscriptionID: "sub_" + uuid.NewString()[:8],
	}
	if customerID != "" {
		sub.StripeCustomerID = &customerID
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to create test subscription: %v", err)
	}
	return sub
}

func CreateTestReferral(t *testing.T, db *gorm.DB, referrerID uuid.UUID, code string) *models.Referral {
	t.Helper()

	ref := &models.Referral{ReferrerUserID: referrerID, Code: code}
	if err := db.Create(ref).Error; err != nil {
		t.Fatalf("failed to create test referral: %v", err)
	}
	return ref
}

func CreateTestCommission(t *testing.T, db *gorm.DB, referralID uuid.UUID, amountCents int64) *models.ReferralCommission {
	t.Helper()

	c := &models.ReferralCommission{
		ReferralID:        referralID,
		AmountCents:       amountCents,
		Status:            models.CommissionStatusPending,
		ReferredUserEmail: "referred-" + uuid.NewString()[:8] + "@example.com",
		StripeInvoiceID:   "in_" + uuid.NewString()[:12],
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("failed to create test commission: %v", err)
	}
	return c
}

func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// JSONRequest builds a request with a JSON body. A nil body sends none.
func JSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AsUser builds a JSON request carrying email in the identity header.
func AsUser(t *testing.T, method, path string, body interface{}, email string) *http.Request {
	t.Helper()

	req := JSONRequest(t, method, path, body)
	if email != "" {
		req.Header.Set(IdentityHeader, email)
	}
	return req
}

// WithBearer builds a JSON request authenticated with a session token.
func WithBearer(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	req := JSONRequest(t, method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}
