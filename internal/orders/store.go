package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bx-options/internal/types"
)

type Order struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	AccountType types.AccountType    `json:"account_type"`
	AssetID     string               `json:"asset_id"`
	Direction   types.OrderDirection `json:"direction"`
	Amount      decimal.Decimal      `json:"amount"`
	ProfitRate  decimal.Decimal      `json:"profit_rate"`
	EntryPrice  decimal.Decimal      `json:"entry_price"`
	ExitPrice   *decimal.Decimal     `json:"exit_price,omitempty"`
	Profit      *decimal.Decimal     `json:"profit,omitempty"`
	Status      types.OrderStatus    `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	ExpiresAt   time.Time            `json:"expires_at"`
}

type Store interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	// ListDue returns ACTIVE orders whose expiry has elapsed.
	ListDue(ctx context.Context, now time.Time) ([]Order, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]Order, int, error)
	// Settle transitions the order to its terminal state only if it is still
	// ACTIVE. claimed=false means another settlement got there first.
	Settle(ctx context.Context, id string, status types.OrderStatus, exitPrice, profit decimal.Decimal) (claimed bool, err error)
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const orderColumns = "id, user_id, account_type, asset_id, direction, amount, profit_rate, entry_price, exit_price, profit, status, created_at, expires_at"

func (s *PGStore) Create(ctx context.Context, o Order) error {
	_, err := s.pool.Exec(ctx,
		"insert into orders (id, user_id, account_type, asset_id, direction, amount, profit_rate, entry_price, status, created_at, expires_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)",
		o.ID, o.UserID, string(o.AccountType), o.AssetID, string(o.Direction), o.Amount, o.ProfitRate, o.EntryPrice, string(o.Status), o.CreatedAt, o.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Order, error) {
	row := s.pool.QueryRow(ctx, "select "+orderColumns+" from orders where id = $1", id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, types.NotFound("order", id)
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *PGStore) ListDue(ctx context.Context, now time.Time) ([]Order, error) {
	rows, err := s.pool.Query(ctx,
		"select "+orderColumns+" from orders where status = 'ACTIVE' and expires_at <= $1 order by expires_at asc", now)
	if err != nil {
		return nil, fmt.Errorf("list due orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *PGStore) ListByUser(ctx context.Context, userID string, page, limit int) ([]Order, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, "select count(*) from orders where user_id = $1", userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		"select "+orderColumns+" from orders where user_id = $1 order by created_at desc, id desc limit $2 offset $3",
		userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	out, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PGStore) Settle(ctx context.Context, id string, status types.OrderStatus, exitPrice, profit decimal.Decimal) (bool, error) {
	cmd, err := s.pool.Exec(ctx,
		"update orders set status = $2, exit_price = $3, profit = $4 where id = $1 and status = 'ACTIVE'",
		id, string(status), exitPrice, profit)
	if err != nil {
		return false, fmt.Errorf("settle order: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var accountType, direction, status string
	err := row.Scan(&o.ID, &o.UserID, &accountType, &o.AssetID, &direction, &o.Amount,
		&o.ProfitRate, &o.EntryPrice, &o.ExitPrice, &o.Profit, &status, &o.CreatedAt, &o.ExpiresAt)
	if err != nil {
		return Order{}, err
	}
	o.AccountType = types.AccountType(accountType)
	o.Direction = types.OrderDirection(direction)
	o.Status = types.OrderStatus(status)
	return o, nil
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return out, nil
}

var _ Store = (*PGStore)(nil)
