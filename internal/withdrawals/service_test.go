package withdrawals

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-options/internal/keylock"
	"bx-options/internal/ledger"
	"bx-options/internal/notify"
	"bx-options/internal/types"
	"bx-options/internal/verify"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var verifiedIdentity = verify.StaticStatus{
	DocumentOK: true,
	SelfieOK:   true,
	Bank: verify.BankAccount{
		BankName:      "Ipak Yuli",
		AccountNumber: "20208000900123456789",
		AccountHolder: "Test User",
	},
}

type fixture struct {
	svc    *Service
	store  *MemStore
	engine *ledger.Engine
}

func newFixture(t *testing.T, identity verify.Status) *fixture {
	t.Helper()
	locks := keylock.New(30*time.Second, time.Minute, testLogger())
	t.Cleanup(locks.Close)
	engine := ledger.NewEngine(ledger.NewMemStore(), locks, notify.NewBus(), testLogger())
	t.Cleanup(engine.Close)
	store := NewMemStore()
	svc := NewService(store, engine, identity, decimal.NewFromInt(50000), testLogger())
	return &fixture{svc: svc, store: store, engine: engine}
}

func (f *fixture) fund(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, _, err := f.engine.Append(context.Background(), types.RealAccount(userID),
		types.TxKindDeposit, decimal.NewFromInt(amount), "seed")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	b, err := f.engine.GetBalance(context.Background(), types.RealAccount(userID), ledger.FreshnessStrict)
	require.NoError(t, err)
	return b
}

func TestRequestPreconditions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("below minimum", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, verifiedIdentity)
		f.fund(t, "u1", 200000)
		_, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(40000))
		var invalid *types.ValidationError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("document not verified", func(t *testing.T) {
		t.Parallel()
		identity := verifiedIdentity
		identity.DocumentOK = false
		f := newFixture(t, identity)
		f.fund(t, "u1", 200000)
		_, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
		assert.Error(t, err)
	})

	t.Run("selfie not verified", func(t *testing.T) {
		t.Parallel()
		identity := verifiedIdentity
		identity.SelfieOK = false
		f := newFixture(t, identity)
		f.fund(t, "u1", 200000)
		_, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
		assert.Error(t, err)
	})

	t.Run("no bank account", func(t *testing.T) {
		t.Parallel()
		identity := verifiedIdentity
		identity.Bank = verify.BankAccount{}
		f := newFixture(t, identity)
		f.fund(t, "u1", 200000)
		_, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
		assert.Error(t, err)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, verifiedIdentity)
		f.fund(t, "u1", 50000)
		_, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
		var insufficient *types.InsufficientFundsError
		assert.ErrorAs(t, err, &insufficient)
	})
}

func TestRequestCreatesPendingWithoutDebit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)

	req, err := f.svc.Request(context.Background(), "u1", decimal.NewFromInt(60000))
	require.NoError(t, err)
	assert.Equal(t, types.WithdrawalStatusPending, req.Status)
	assert.Equal(t, "20208000900123456789", req.Bank.AccountNumber)

	// Funds leave the account only on approval.
	assert.True(t, decimal.NewFromInt(200000).Equal(f.balance(t, "u1")))
}

func TestSecondPendingRequestRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, "u1", decimal.NewFromInt(70000))
	var conflict *types.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestApproveDebitsAndCompletes(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)
	ctx := context.Background()

	req, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
	require.NoError(t, err)

	reviewed, err := f.svc.Review(ctx, req.ID, "admin-1", true, "")
	require.NoError(t, err)
	assert.Equal(t, types.WithdrawalStatusCompleted, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "admin-1", *reviewed.ReviewedBy)

	assert.True(t, decimal.NewFromInt(140000).Equal(f.balance(t, "u1")))
}

func TestApproveRevertsWhenFundsRanShort(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)
	ctx := context.Background()

	req, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(150000))
	require.NoError(t, err)

	// Balance drops between request and review.
	_, _, err = f.engine.Append(ctx, types.RealAccount("u1"), types.TxKindOrderDebit,
		decimal.NewFromInt(100000), "stake")
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, req.ID, "admin-1", true, "")
	var insufficient *types.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)

	// The claim was reverted; the request is PENDING again and no debit happened.
	got, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, types.WithdrawalStatusPending, got.Status)
	assert.True(t, decimal.NewFromInt(100000).Equal(f.balance(t, "u1")))
}

func TestRejectRequiresReason(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)
	ctx := context.Background()

	req, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, req.ID, "admin-1", false, "  ")
	var invalid *types.ValidationError
	require.ErrorAs(t, err, &invalid)

	reviewed, err := f.svc.Review(ctx, req.ID, "admin-1", false, "mismatched account holder")
	require.NoError(t, err)
	assert.Equal(t, types.WithdrawalStatusRejected, reviewed.Status)
	require.NotNil(t, reviewed.RejectReason)
	assert.Equal(t, "mismatched account holder", *reviewed.RejectReason)
	assert.True(t, decimal.NewFromInt(200000).Equal(f.balance(t, "u1")))
}

func TestReviewProcessedRequestConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)
	ctx := context.Background()

	req, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, req.ID, "admin-1", true, "")
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, req.ID, "admin-2", true, "")
	var conflict *types.ConflictError
	assert.ErrorAs(t, err, &conflict)

	_, err = f.svc.Review(ctx, req.ID, "admin-2", false, "late reject")
	assert.ErrorAs(t, err, &conflict)

	// Debited exactly once.
	assert.True(t, decimal.NewFromInt(140000).Equal(f.balance(t, "u1")))
}

func TestCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)
	ctx := context.Background()

	req, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
	require.NoError(t, err)

	// Only the owner may cancel; others see the request as missing.
	err = f.svc.Cancel(ctx, req.ID, "u2")
	var notFound *types.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	require.NoError(t, f.svc.Cancel(ctx, req.ID, "u1"))
	_, err = f.store.Get(ctx, req.ID)
	assert.ErrorAs(t, err, &notFound)
}

func TestCancelProcessedRequestConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, verifiedIdentity)
	f.fund(t, "u1", 200000)
	ctx := context.Background()

	req, err := f.svc.Request(ctx, "u1", decimal.NewFromInt(60000))
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, req.ID, "admin-1", true, "")
	require.NoError(t, err)

	err = f.svc.Cancel(ctx, req.ID, "u1")
	var conflict *types.ConflictError
	assert.ErrorAs(t, err, &conflict)
}
