package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bx-options/internal/cache"
	"bx-options/internal/keylock"
	"bx-options/internal/notify"
	"bx-options/internal/types"
)

type Freshness int

const (
	// FreshnessCached serves a balance no older than the cache TTL.
	FreshnessCached Freshness = iota
	// FreshnessStrict always recomputes from the store and refreshes the cache.
	FreshnessStrict
)

const balanceTTL = 500 * time.Millisecond

// TierRecalculator recomputes a user's status tier after each real deposit.
type TierRecalculator interface {
	Recalculate(ctx context.Context, userID string, cumulativeRealDeposits decimal.Decimal) error
}

// FirstDepositHook fires synchronously when an append is provably the
// account's first-ever real deposit.
type FirstDepositHook interface {
	FirstRealDeposit(ctx context.Context, userID string, cumulativeRealDeposits decimal.Decimal) error
}

// Engine owns every balance mutation. Mutations for the same account are
// serialized in-process through the keylock; withdrawal sufficiency is
// additionally enforced inside the store's atomic read-then-append, which is
// what holds when several instances run against one ledger.
type Engine struct {
	store    Storage
	locks    *keylock.KeyLock
	balances *cache.Cache[string, decimal.Decimal]
	bus      *notify.Bus
	log      logrus.FieldLogger

	tiers       TierRecalculator
	depositHook FirstDepositHook
}

func NewEngine(store Storage, locks *keylock.KeyLock, bus *notify.Bus, log logrus.FieldLogger) *Engine {
	return &Engine{
		store:    store,
		locks:    locks,
		balances: cache.New[string, decimal.Decimal](5*time.Second, time.Minute),
		bus:      bus,
		log:      log,
	}
}

// SetTierRecalculator and SetFirstDepositHook are wired after construction;
// both collaborators need the engine themselves.
func (e *Engine) SetTierRecalculator(t TierRecalculator) { e.tiers = t }

func (e *Engine) SetFirstDepositHook(h FirstDepositHook) { e.depositHook = h }

func (e *Engine) Close() { e.balances.Close() }

func (e *Engine) GetBalance(ctx context.Context, account types.Account, freshness Freshness) (decimal.Decimal, error) {
	if !account.Type.Valid() {
		return decimal.Zero, types.Invalid("account_type", "must be real or demo")
	}
	if freshness == FreshnessCached {
		if balance, ok := e.balances.Get(account.Key()); ok {
			return balance, nil
		}
	}
	balance, err := e.store.Balance(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}
	e.balances.Set(account.Key(), balance, balanceTTL)
	return balance, nil
}

// Append records one ledger transaction and returns it with the resulting
// balance. Withdrawals are checked and written in one atomic unit; on
// InsufficientFunds nothing is applied.
func (e *Engine) Append(ctx context.Context, account types.Account, kind types.TxKind, amount decimal.Decimal, description string) (Transaction, decimal.Decimal, error) {
	if !account.Type.Valid() {
		return Transaction{}, decimal.Zero, types.Invalid("account_type", "must be real or demo")
	}
	if !kind.Valid() {
		return Transaction{}, decimal.Zero, types.Invalid("kind", "unknown transaction kind")
	}
	if !amount.GreaterThan(decimal.Zero) {
		return Transaction{}, decimal.Zero, types.Invalid("amount", "must be positive")
	}

	release := e.locks.Acquire(account.Key())
	defer release()

	tx := Transaction{
		ID:          uuid.NewString(),
		UserID:      account.UserID,
		AccountType: account.Type,
		Kind:        kind,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	var newBalance decimal.Decimal
	firstRealDeposit := false
	cumulativeDeposits := decimal.Zero

	switch {
	case kind == types.TxKindWithdrawal:
		err := e.store.ReadThenAppend(ctx, account, func(existing []Transaction) (*Transaction, error) {
			available := Sum(existing)
			if available.LessThan(amount) {
				return nil, &types.InsufficientFundsError{
					AccountType: account.Type,
					Available:   available,
					Requested:   amount,
				}
			}
			newBalance = available.Sub(amount)
			return &tx, nil
		})
		if err != nil {
			return Transaction{}, decimal.Zero, err
		}

	case kind == types.TxKindDeposit && account.Type == types.AccountTypeReal:
		// First-deposit detection is a read-then-act; it is safe because
		// deposits for one account are serialized by the keylock above.
		existing, err := e.store.Query(ctx, account)
		if err != nil {
			return Transaction{}, decimal.Zero, err
		}
		firstRealDeposit = true
		for _, prior := range existing {
			if prior.Kind == types.TxKindDeposit {
				firstRealDeposit = false
				cumulativeDeposits = cumulativeDeposits.Add(prior.Amount)
			}
		}
		cumulativeDeposits = cumulativeDeposits.Add(amount)
		newBalance = Sum(existing).Add(amount)
		if err := e.store.Append(ctx, tx); err != nil {
			return Transaction{}, decimal.Zero, err
		}

	default:
		if err := e.store.Append(ctx, tx); err != nil {
			return Transaction{}, decimal.Zero, err
		}
		balance, err := e.store.Balance(ctx, account)
		if err != nil {
			return Transaction{}, decimal.Zero, fmt.Errorf("balance after append: %w", err)
		}
		newBalance = balance
	}

	e.balances.Set(account.Key(), newBalance, balanceTTL)
	e.bus.Publish(notify.EventBalanceChanged, account.UserID, map[string]any{
		"account_type": account.Type,
		"kind":         kind,
		"amount":       amount.String(),
		"balance":      newBalance.String(),
	})

	if kind == types.TxKindDeposit && account.Type == types.AccountTypeReal {
		if e.tiers != nil {
			if err := e.tiers.Recalculate(ctx, account.UserID, cumulativeDeposits); err != nil {
				e.log.WithError(err).WithField("user_id", account.UserID).
					Error("tier recalculation failed after deposit")
			}
		}
		if firstRealDeposit && e.depositHook != nil {
			if err := e.depositHook.FirstRealDeposit(ctx, account.UserID, cumulativeDeposits); err != nil {
				e.log.WithError(err).WithField("user_id", account.UserID).
					Error("first-deposit hook failed")
			}
		}
	}

	return tx, newBalance, nil
}

func (e *Engine) History(ctx context.Context, account types.Account, page, limit int) ([]Transaction, int, error) {
	if !account.Type.Valid() {
		return nil, 0, types.Invalid("account_type", "must be real or demo")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return e.store.History(ctx, account, page, limit)
}
