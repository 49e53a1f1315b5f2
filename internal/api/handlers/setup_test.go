package handlers_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hugh/chronos/internal/auth"
	"github.com/hugh/chronos/internal/billing"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/internal/tasks"
	"github.com/hugh/chronos/internal/testutil"
	"github.com/hugh/chronos/pkg/crypto"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type testEnv struct {
	DB      *gorm.DB
	Enc     *crypto.Encryptor
	Auth    *auth.Service
	Billing *billing.Service
	Gateway *fakeGateway
	Ledger  *referral.Ledger
	Logger  *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	enc := testutil.TestEncryptor(t)
	gw := &fakeGateway{}

	return &testEnv{
		DB:      db,
		Enc:     enc,
		Auth:    auth.NewService(db, enc, auth.Options{TrialPeriod: 14 * 24 * time.Hour}),
		Billing: billing.NewService(db, gw, billing.Prices{Monthly: "price_monthly", Yearly: "price_yearly"}, "https://app.chronos.test"),
		Gateway: gw,
		Ledger:  referral.NewLedger(db, 30),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

type fakeGateway struct {
	mu        sync.Mutex
	customers int
	portalFor string
	checkout  billing.CheckoutParams
	err       error
}

func (f *fakeGateway) CreateCustomer(_ context.Context, email, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.customers++
	return fmt.Sprintf("cus_%d", f.customers), nil
}

func (f *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.portalFor = customerID
	return "https://billing.stripe.test/session/" + customerID, nil
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.checkout = p
	return "https://checkout.stripe.test/" + p.PriceID, nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []tasks.CommissionAccruePayload
	err      error
}

func (d *recordingDispatcher) AccrueCommission(_ context.Context, p tasks.CommissionAccruePayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.payloads = append(d.payloads, p)
	return nil
}

func signWebhook(payload []byte, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: ts,
	}).Header
}

func webhookEvent(eventType, object string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","object":"event","api_version":"2024-06-20","type":%q,"data":{"object":%s}}`,
		eventType, object,
	))
}
