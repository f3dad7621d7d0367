package ledger

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-options/internal/keylock"
	"bx-options/internal/notify"
	"bx-options/internal/types"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(t *testing.T) (*Engine, *MemStore) {
	t.Helper()
	store := NewMemStore()
	locks := keylock.New(30*time.Second, time.Minute, testLogger())
	t.Cleanup(locks.Close)
	e := NewEngine(store, locks, notify.NewBus(), testLogger())
	t.Cleanup(e.Close)
	return e, store
}

type hookRecorder struct {
	mu    sync.Mutex
	calls []decimal.Decimal
}

func (h *hookRecorder) FirstRealDeposit(ctx context.Context, userID string, cumulative decimal.Decimal) error {
	h.mu.Lock()
	h.calls = append(h.calls, cumulative)
	h.mu.Unlock()
	return nil
}

type tierRecorder struct {
	mu    sync.Mutex
	calls []decimal.Decimal
}

func (r *tierRecorder) Recalculate(ctx context.Context, userID string, cumulative decimal.Decimal) error {
	r.mu.Lock()
	r.calls = append(r.calls, cumulative)
	r.mu.Unlock()
	return nil
}

func TestAppendValidation(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Append(ctx, types.Account{UserID: "u1", Type: "margin"}, types.TxKindDeposit, decimal.NewFromInt(10), "")
	assert.Error(t, err)

	_, _, err = e.Append(ctx, types.DemoAccount("u1"), "bonus", decimal.NewFromInt(10), "")
	assert.Error(t, err)

	_, _, err = e.Append(ctx, types.DemoAccount("u1"), types.TxKindDeposit, decimal.Zero, "")
	assert.Error(t, err)

	_, _, err = e.Append(ctx, types.DemoAccount("u1"), types.TxKindDeposit, decimal.NewFromInt(-5), "")
	assert.Error(t, err)
}

func TestDepositThenWithdraw(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()
	account := types.RealAccount("u1")

	_, balance, err := e.Append(ctx, account, types.TxKindDeposit, decimal.NewFromInt(100000), "gateway deposit")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100000).Equal(balance))

	_, balance, err = e.Append(ctx, account, types.TxKindWithdrawal, decimal.NewFromInt(50000), "withdrawal")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50000).Equal(balance))

	got, err := e.GetBalance(ctx, account, FreshnessStrict)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50000).Equal(got))
}

func TestBalanceIsSignedSumOverAllKinds(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()
	account := types.DemoAccount("u1")

	steps := []struct {
		kind   types.TxKind
		amount int64
	}{
		{types.TxKindDeposit, 100},
		{types.TxKindOrderDebit, 30},
		{types.TxKindOrderProfit, 50},
		{types.TxKindWithdrawal, 20},
	}
	var last decimal.Decimal
	for _, step := range steps {
		var err error
		_, last, err = e.Append(ctx, account, step.kind, decimal.NewFromInt(step.amount), "")
		require.NoError(t, err)
	}

	// 100 - 30 + 50 - 20
	assert.True(t, decimal.NewFromInt(100).Equal(last))
	strict, err := e.GetBalance(ctx, account, FreshnessStrict)
	require.NoError(t, err)
	assert.True(t, last.Equal(strict))
}

func TestWithdrawalInsufficientFundsLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()
	e, store := newTestEngine(t)
	ctx := context.Background()
	account := types.RealAccount("u1")

	_, _, err := e.Append(ctx, account, types.TxKindDeposit, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	_, _, err = e.Append(ctx, account, types.TxKindWithdrawal, decimal.NewFromInt(150), "")
	var insufficient *types.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, decimal.NewFromInt(100).Equal(insufficient.Available))
	assert.True(t, decimal.NewFromInt(150).Equal(insufficient.Requested))

	txs, err := store.Query(ctx, account)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()
	account := types.DemoAccount("u1")

	_, _, err := e.Append(ctx, account, types.TxKindDeposit, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	const workers = 10
	withdraw := decimal.NewFromInt(30)
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, _, err := e.Append(ctx, account, types.TxKindWithdrawal, withdraw, ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	balance, err := e.GetBalance(ctx, account, FreshnessStrict)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(balance))
}

func TestFirstRealDepositHookFiresOnce(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	hook := &hookRecorder{}
	tiers := &tierRecorder{}
	e.SetFirstDepositHook(hook)
	e.SetTierRecalculator(tiers)
	ctx := context.Background()
	account := types.RealAccount("u1")

	_, _, err := e.Append(ctx, account, types.TxKindDeposit, decimal.NewFromInt(5000), "")
	require.NoError(t, err)
	_, _, err = e.Append(ctx, account, types.TxKindDeposit, decimal.NewFromInt(7000), "")
	require.NoError(t, err)

	require.Len(t, hook.calls, 1)
	assert.True(t, decimal.NewFromInt(5000).Equal(hook.calls[0]))

	require.Len(t, tiers.calls, 2)
	assert.True(t, decimal.NewFromInt(5000).Equal(tiers.calls[0]))
	assert.True(t, decimal.NewFromInt(12000).Equal(tiers.calls[1]))
}

func TestDemoDepositDoesNotTriggerHook(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	hook := &hookRecorder{}
	e.SetFirstDepositHook(hook)

	_, _, err := e.Append(context.Background(), types.DemoAccount("u1"), types.TxKindDeposit, decimal.NewFromInt(5000), "")
	require.NoError(t, err)
	assert.Empty(t, hook.calls)
}

func TestGetBalanceFreshness(t *testing.T) {
	t.Parallel()
	e, store := newTestEngine(t)
	ctx := context.Background()
	account := types.RealAccount("u1")

	_, _, err := e.Append(ctx, account, types.TxKindDeposit, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	// Appended behind the engine's back, the cache does not see it yet.
	require.NoError(t, store.Append(ctx, Transaction{
		ID:          "t2",
		UserID:      account.UserID,
		AccountType: account.Type,
		Kind:        types.TxKindDeposit,
		Amount:      decimal.NewFromInt(50),
		CreatedAt:   time.Now().UTC(),
	}))

	cached, err := e.GetBalance(ctx, account, FreshnessCached)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(cached))

	strict, err := e.GetBalance(ctx, account, FreshnessStrict)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(strict))
}

func TestHistoryPagination(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)
	ctx := context.Background()
	account := types.DemoAccount("u1")

	for i := 0; i < 5; i++ {
		_, _, err := e.Append(ctx, account, types.TxKindDeposit, decimal.NewFromInt(int64(i+1)), "")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	page, total, err := e.History(ctx, account, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	// Newest first.
	assert.True(t, decimal.NewFromInt(5).Equal(page[0].Amount))

	page, _, err = e.History(ctx, account, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, _, err = e.History(ctx, account, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}
