package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bx-options/internal/types"
)

// Transaction is an immutable ledger entry. It is created once and never
// updated or deleted; the account balance is the signed sum over all of them.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	AccountType types.AccountType `json:"account_type"`
	Kind        types.TxKind      `json:"kind"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AppendFn inspects every transaction recorded for the account (newest first)
// and may return one transaction to append within the same atomic unit.
// Returning nil appends nothing.
type AppendFn func(existing []Transaction) (*Transaction, error)

type Storage interface {
	Append(ctx context.Context, tx Transaction) error
	Query(ctx context.Context, account types.Account) ([]Transaction, error)
	History(ctx context.Context, account types.Account, page, limit int) ([]Transaction, int, error)
	Balance(ctx context.Context, account types.Account) (decimal.Decimal, error)
	// ReadThenAppend closes the time-of-check/time-of-use gap at the storage
	// layer: the read and the conditional append are one atomic unit. This is
	// the guarantee that holds across multiple running instances.
	ReadThenAppend(ctx context.Context, account types.Account, fn AppendFn) error
}

// Sum derives a balance from a transaction slice.
func Sum(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(types.Signed(tx.Kind, tx.Amount))
	}
	return total
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const txColumns = "id, user_id, account_type, kind, amount, description, created_at"

func (s *PGStore) Append(ctx context.Context, tx Transaction) error {
	_, err := s.pool.Exec(ctx,
		"insert into transactions (id, user_id, account_type, kind, amount, description, created_at) values ($1,$2,$3,$4,$5,$6,$7)",
		tx.ID, tx.UserID, string(tx.AccountType), string(tx.Kind), tx.Amount, tx.Description, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (s *PGStore) Query(ctx context.Context, account types.Account) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx,
		"select "+txColumns+" from transactions where user_id = $1 and account_type = $2 order by created_at desc, id desc",
		account.UserID, string(account.Type))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (s *PGStore) History(ctx context.Context, account types.Account, page, limit int) ([]Transaction, int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		"select count(*) from transactions where user_id = $1 and account_type = $2",
		account.UserID, string(account.Type)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		"select "+txColumns+" from transactions where user_id = $1 and account_type = $2 order by created_at desc, id desc limit $3 offset $4",
		account.UserID, string(account.Type), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (s *PGStore) Balance(ctx context.Context, account types.Account) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		select coalesce(sum(case when kind in ('deposit', 'order_profit') then amount else -amount end), 0)
		from transactions
		where user_id = $1 and account_type = $2
	`, account.UserID, string(account.Type)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum balance: %w", err)
	}
	return sum, nil
}

func (s *PGStore) ReadThenAppend(ctx context.Context, account types.Account, fn AppendFn) error {
	dbtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin read-then-append: %w", err)
	}
	defer dbtx.Rollback(ctx)

	rows, err := dbtx.Query(ctx,
		"select "+txColumns+" from transactions where user_id = $1 and account_type = $2 order by created_at desc, id desc",
		account.UserID, string(account.Type))
	if err != nil {
		return fmt.Errorf("read transactions: %w", err)
	}
	existing, err := scanTransactions(rows)
	rows.Close()
	if err != nil {
		return err
	}

	next, err := fn(existing)
	if err != nil {
		return err
	}
	if next == nil {
		return dbtx.Commit(ctx)
	}
	_, err = dbtx.Exec(ctx,
		"insert into transactions (id, user_id, account_type, kind, amount, description, created_at) values ($1,$2,$3,$4,$5,$6,$7)",
		next.ID, next.UserID, string(next.AccountType), string(next.Kind), next.Amount, next.Description, next.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit read-then-append: %w", err)
	}
	return nil
}

func scanTransactions(rows pgx.Rows) ([]Transaction, error) {
	var out []Transaction
	for rows.Next() {
		var tx Transaction
		var accountType, kind string
		if err := rows.Scan(&tx.ID, &tx.UserID, &accountType, &kind, &tx.Amount, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.AccountType = types.AccountType(accountType)
		tx.Kind = types.TxKind(kind)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	return out, nil
}

var _ Storage = (*PGStore)(nil)
