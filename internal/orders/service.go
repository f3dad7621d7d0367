package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bx-options/internal/assets"
	"bx-options/internal/ledger"
	"bx-options/internal/notify"
	"bx-options/internal/pricing"
	"bx-options/internal/types"
)

var oneHundred = decimal.NewFromInt(100)

type Service struct {
	store  Store
	assets assets.Store
	engine *ledger.Engine
	oracle *pricing.Oracle
	bus    *notify.Bus
	log    logrus.FieldLogger
}

func NewService(store Store, assetStore assets.Store, engine *ledger.Engine, oracle *pricing.Oracle, bus *notify.Bus, log logrus.FieldLogger) *Service {
	return &Service{store: store, assets: assetStore, engine: engine, oracle: oracle, bus: bus, log: log}
}

type PlaceRequest struct {
	Account         types.Account
	AssetID         string
	Direction       types.OrderDirection
	Amount          decimal.Decimal
	DurationMinutes int
}

// Place validates the request, debits the stake, and persists the order as
// ACTIVE with the entry price. On InsufficientFunds no order is persisted.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (Order, error) {
	if !req.Account.Type.Valid() {
		return Order{}, types.Invalid("account_type", "must be real or demo")
	}
	if !req.Direction.Valid() {
		return Order{}, types.Invalid("direction", "must be CALL or PUT")
	}
	if !req.Amount.GreaterThan(decimal.Zero) {
		return Order{}, types.Invalid("amount", "must be positive")
	}

	asset, err := s.assets.Get(ctx, req.AssetID)
	if err != nil {
		return Order{}, err
	}
	if !asset.Active {
		return Order{}, types.Invalid("asset_id", "asset is not active")
	}
	if req.Amount.LessThan(asset.MinAmount) || req.Amount.GreaterThan(asset.MaxAmount) {
		return Order{}, types.Invalid("amount",
			fmt.Sprintf("must be between %s and %s", asset.MinAmount.String(), asset.MaxAmount.String()))
	}
	if !asset.AllowsDuration(req.DurationMinutes) {
		return Order{}, types.Invalid("duration", "not allowed for this asset")
	}

	quote, err := s.oracle.GetPrice(ctx, req.AssetID, pricing.TierFast)
	if err != nil {
		return Order{}, fmt.Errorf("entry price for %s: %w", asset.Symbol, err)
	}

	if _, _, err := s.engine.Append(ctx, req.Account, types.TxKindOrderDebit, req.Amount,
		fmt.Sprintf("Binary order %s %s", asset.Symbol, req.Direction)); err != nil {
		return Order{}, err
	}

	now := time.Now().UTC()
	order := Order{
		ID:          uuid.NewString(),
		UserID:      req.Account.UserID,
		AccountType: req.Account.Type,
		AssetID:     req.AssetID,
		Direction:   req.Direction,
		Amount:      req.Amount,
		ProfitRate:  asset.ProfitRate,
		EntryPrice:  quote.Price,
		Status:      types.OrderStatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(req.DurationMinutes) * time.Minute),
	}
	if err := s.store.Create(ctx, order); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": req.Account.UserID,
			"tx_kind": types.TxKindOrderDebit,
		}).Error("order persist failed after debit")
		return Order{}, err
	}
	return order, nil
}

// Get returns one order scoped to its owner; anyone else sees not-found.
func (s *Service) Get(ctx context.Context, userID, id string) (Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, types.NotFound("order", id)
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.store.ListByUser(ctx, userID, page, limit)
}

// SettleDue resolves every ACTIVE order whose expiry has elapsed. Orders
// without a usable price stay ACTIVE and are retried on the next tick; an
// order is never defaulted to LOST for lack of a price.
func (s *Service) SettleDue(ctx context.Context, now time.Time) int {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		s.log.WithError(err).Error("settlement: listing due orders failed")
		return 0
	}
	settled := 0
	for _, o := range due {
		ok, err := s.settleOne(ctx, o)
		if err != nil {
			s.log.WithError(err).WithField("order_id", o.ID).Error("settlement failed")
			continue
		}
		if ok {
			settled++
		}
	}
	return settled
}

func (s *Service) settleOne(ctx context.Context, o Order) (bool, error) {
	quote, ok := s.oracle.GetPriceForSettlement(ctx, o.AssetID)
	if !ok {
		// Deferred, not failed. The next sweep retries.
		s.log.WithField("order_id", o.ID).Debug("settlement deferred: price unavailable")
		return false, nil
	}

	exit := quote.Price
	won := false
	switch o.Direction {
	case types.OrderDirectionCall:
		won = exit.GreaterThan(o.EntryPrice)
	case types.OrderDirectionPut:
		won = exit.LessThan(o.EntryPrice)
	}
	// An exact tie settles as a loss for both directions.

	status := types.OrderStatusLost
	profit := decimal.Zero
	if won {
		status = types.OrderStatusWon
		profit = o.Amount.Mul(o.ProfitRate).Div(oneHundred)
	}

	// Claim the terminal transition before paying out so an overlapping sweep
	// can never credit twice.
	claimed, err := s.store.Settle(ctx, o.ID, status, exit, profit)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.log.WithField("order_id", o.ID).Warn("order already settled, skipping")
		return false, nil
	}

	if won {
		payout := o.Amount.Add(profit)
		account := types.Account{UserID: o.UserID, Type: o.AccountType}
		if _, _, err := s.engine.Append(ctx, account, types.TxKindOrderProfit, payout,
			fmt.Sprintf("Binary order won (%s)", o.ID)); err != nil {
			// The order is already terminal; the credit must be replayed by
			// an operator. Loud on purpose.
			return false, fmt.Errorf("payout credit for order %s: %w", o.ID, err)
		}
	}

	s.bus.Publish(notify.EventOrderSettled, o.UserID, map[string]any{
		"order_id":     o.ID,
		"status":       status,
		"exit_price":   exit.String(),
		"profit":       profit.String(),
		"account_type": o.AccountType,
	})
	return true, nil
}
