package referral_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/chronos/internal/database/models"
	"github.com/hugh/chronos/internal/referral"
	"github.com/hugh/chronos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLedger_EnsureReferral(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ledger := referral.NewLedger(db, 30)
	user := testutil.CreateTestUser(t, db)
	ctx := context.Background()

	first, err := ledger.EnsureReferral(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, referral.IsValidCode(first.Code))

	again, err := ledger.EnsureReferral(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Code, again.Code)
}

func TestLedger_EnsureReferral_StoreFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ledger := referral.NewLedger(db, 30)
	user := testutil.CreateTestUser(t, db)

	diskFull := errors.New("disk full")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_referrals", func(tx *gorm.DB) {
		if tx.Statement.Table == "referrals" {
			_ = tx.AddError(diskFull)
		}
	}))

	_, err := ledger.EnsureReferral(context.Background(), user.ID)
	assert.ErrorIs(t, err, diskFull)
	assert.NotErrorIs(t, err, referral.ErrCodeExhausted)
}

func TestLedger_Accrue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ledger := referral.NewLedger(db, 30)
	ctx := context.Background()

	referrer := testutil.CreateTestUser(t, db)
	ref := testutil.CreateTestReferral(t, db, referrer.ID, "CHRONOS-AB12C")

	referred := testutil.CreateTestUser(t, db)
	require.NoError(t, db.Model(referred).Update("referred_by_id", ref.ID).Error)

	input := referral.AccrualInput{
		ReferredUserEmail: referred.Email,
		InvoiceID:         "in_123",
		AmountPaidCents:   4990,
	}

	c, created, err := ledger.Accrue(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1497), c.AmountCents)
	assert.Equal(t, models.CommissionStatusPending, c.Status)

	replay, created, err := ledger.Accrue(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, replay.ID)

	var count int64
	db.Model(&models.ReferralCommission{}).Count(&count)
	assert.Equal(t, int64(1), count)

	loner := testutil.CreateTestUser(t, db)
	_, _, err = ledger.Accrue(ctx, referral.AccrualInput{ReferredUserEmail: loner.Email, InvoiceID: "in_456", AmountPaidCents: 100})
	assert.ErrorIs(t, err, referral.ErrNotReferred)
}

func TestLedger_ApproveCommission(t *testing.T) {
	ctx := context.Background()

	t.Run("marks paid and credits referral", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ledger := referral.NewLedger(db, 30)
		referrer := testutil.CreateTestUser(t, db)
		ref := testutil.CreateTestReferral(t, db, referrer.ID, "CHRONOS-AB12C")
		c := testutil.CreateTestCommission(t, db, ref.ID, 1500)

		approved, err := ledger.ApproveCommission(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CommissionStatusPaid, approved.Status)
		assert.NotNil(t, approved.PaidAt)

		var stored models.Referral
		require.NoError(t, db.First(&stored, "id = ?", ref.ID).Error)
		assert.Equal(t, int64(1500), stored.CommissionEarned)
	})

	t.Run("second approval conflicts and does not double count", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ledger := referral.NewLedger(db, 30)
		referrer := testutil.CreateTestUser(t, db)
		ref := testutil.CreateTestReferral(t, db, referrer.ID, "CHRONOS-AB12C")
		c := testutil.CreateTestCommission(t, db, ref.ID, 1500)

		_, err := ledger.ApproveCommission(ctx, c.ID)
		require.NoError(t, err)

		_, err = ledger.ApproveCommission(ctx, c.ID)
		assert.ErrorIs(t, err, referral.ErrAlreadyPaid)

		var stored models.Referral
		require.NoError(t, db.First(&stored, "id = ?", ref.ID).Error)
		assert.Equal(t, int64(1500), stored.CommissionEarned)
	})

	t.Run("unknown commission", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ledger := referral.NewLedger(db, 30)

		_, err := ledger.ApproveCommission(ctx, uuid.New())
		assert.ErrorIs(t, err, referral.ErrCommissionNotFound)
	})

	// The test database has a single connection, so these approvals run one
	// after another; on Postgres the conditional PENDING update is what keeps
	// interleaved approvals from paying twice.
	t.Run("concurrent approvals apply once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ledger := referral.NewLedger(db, 30)
		referrer := testutil.CreateTestUser(t, db)
		ref := testutil.CreateTestReferral(t, db, referrer.ID, "CHRONOS-AB12C")
		c := testutil.CreateTestCommission(t, db, ref.ID, 700)

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.ApproveCommission(ctx, c.ID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case assert.ErrorIs(t, err, referral.ErrAlreadyPaid):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, workers-1, conflicts)

		var stored models.Referral
		require.NoError(t, db.First(&stored, "id = ?", ref.ID).Error)
		assert.Equal(t, int64(700), stored.CommissionEarned)
	})
}

func TestLedger_ListAndSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ledger := referral.NewLedger(db, 30)
	ctx := context.Background()

	referrer := testutil.CreateTestUser(t, db)
	ref, err := ledger.EnsureReferral(ctx, referrer.ID)
	require.NoError(t, err)

	paid := testutil.CreateTestCommission(t, db, ref.ID, 1000)
	testutil.CreateTestCommission(t, db, ref.ID, 250)
	testutil.CreateTestCommission(t, db, ref.ID, 300)
	_, err = ledger.ApproveCommission(ctx, paid.ID)
	require.NoError(t, err)

	pending, total, err := ledger.ListCommissions(ctx, referral.ListFilter{Status: models.CommissionStatusPending, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, pending, 1)

	pendingTotal, err := ledger.CommissionTotal(ctx, models.CommissionStatusPending, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(550), pendingTotal)

	paidTotal, err := ledger.CommissionTotal(ctx, models.CommissionStatusPaid, &ref.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), paidTotal)

	summary, err := ledger.Summary(ctx, referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, ref.Code, summary.Code)
	assert.Equal(t, int64(1000), summary.CommissionEarned)
	assert.Len(t, summary.Commissions, 3)
}
