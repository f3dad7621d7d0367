package affiliate

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
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	locks := keylock.New(30*time.Second, time.Minute, testLogger())
	t.Cleanup(locks.Close)
	e := ledger.NewEngine(ledger.NewMemStore(), locks, notify.NewBus(), testLogger())
	t.Cleanup(e.Close)
	return e
}

func pendingLink(referrer, referee string) Link {
	return Link{
		ReferrerID: referrer,
		RefereeID:  referee,
		Status:     types.AffiliateStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

func referrerBalance(t *testing.T, e *ledger.Engine, userID string) decimal.Decimal {
	t.Helper()
	b, err := e.GetBalance(context.Background(), types.RealAccount(userID), ledger.FreshnessStrict)
	require.NoError(t, err)
	return b
}

func TestCommissionPaidOnce(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	store := NewMemStore(pendingLink("referrer", "referee"))
	trigger := NewTrigger(store, engine, testLogger())
	ctx := context.Background()
	deposit := decimal.NewFromInt(500000)

	require.NoError(t, trigger.FirstRealDeposit(ctx, "referee", deposit))
	// A duplicate delivery finds nothing PENDING and is a no-op.
	require.NoError(t, trigger.FirstRealDeposit(ctx, "referee", deposit))

	assert.True(t, decimal.NewFromInt(25000).Equal(referrerBalance(t, engine, "referrer")))

	link, ok := store.Get("referee")
	require.True(t, ok)
	assert.Equal(t, types.AffiliateStatusCompleted, link.Status)
	require.NotNil(t, link.CommissionAmount)
	assert.True(t, decimal.NewFromInt(25000).Equal(*link.CommissionAmount))
}

func TestCommissionFollowsTier(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		cumulative int64
		commission int64
	}{
		{"standard", 500_000, 25_000},
		{"gold", 10_000_000, 100_000},
		{"vip", 100_000_000, 500_000},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			engine := newTestEngine(t)
			store := NewMemStore(pendingLink("referrer", "referee"))
			trigger := NewTrigger(store, engine, testLogger())

			require.NoError(t, trigger.FirstRealDeposit(context.Background(), "referee",
				decimal.NewFromInt(tc.cumulative)))
			assert.True(t, decimal.NewFromInt(tc.commission).Equal(referrerBalance(t, engine, "referrer")))
		})
	}
}

func TestNoLinkIsANoop(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	trigger := NewTrigger(NewMemStore(), engine, testLogger())

	require.NoError(t, trigger.FirstRealDeposit(context.Background(), "referee", decimal.NewFromInt(500000)))
	assert.True(t, referrerBalance(t, engine, "referrer").IsZero())
}

func TestSelfReferralPaysNothing(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(t)
	store := NewMemStore(pendingLink("referee", "referee"))
	trigger := NewTrigger(store, engine, testLogger())

	require.NoError(t, trigger.FirstRealDeposit(context.Background(), "referee", decimal.NewFromInt(500000)))
	assert.True(t, referrerBalance(t, engine, "referee").IsZero())

	link, ok := store.Get("referee")
	require.True(t, ok)
	assert.Equal(t, types.AffiliateStatusPending, link.Status)
}
