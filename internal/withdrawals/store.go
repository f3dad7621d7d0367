package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bx-options/internal/types"
	"bx-options/internal/verify"
)

// Request gates a real-account debit behind admin review. Bank details are
// snapshotted at request time so a later profile change cannot redirect the
// payout.
type Request struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Amount       decimal.Decimal        `json:"amount"`
	Status       types.WithdrawalStatus `json:"status"`
	Bank         verify.BankAccount     `json:"bank"`
	ReviewedBy   *string                `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time             `json:"reviewed_at,omitempty"`
	RejectReason *string                `json:"reject_reason,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type Store interface {
	// Create persists a PENDING request; a second PENDING request for the
	// same user is a conflict.
	Create(ctx context.Context, r Request) error
	Get(ctx context.Context, id string) (Request, error)
	ListByUser(ctx context.Context, userID string) ([]Request, error)
	ListPending(ctx context.Context) ([]Request, error)
	// Claim moves PENDING→APPROVED; Revert undoes a claim whose debit failed.
	Claim(ctx context.Context, id string) (bool, error)
	Revert(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id, reviewer string, at time.Time) (bool, error)
	Reject(ctx context.Context, id, reviewer, reason string, at time.Time) (bool, error)
	// Delete removes the request while PENDING, by its owner only.
	Delete(ctx context.Context, id, userID string) (bool, error)
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const reqColumns = "id, user_id, amount, status, bank_name, bank_account_number, bank_account_holder, reviewed_by, reviewed_at, reject_reason, created_at"

func (s *PGStore) Create(ctx context.Context, r Request) error {
	_, err := s.pool.Exec(ctx,
		"insert into withdrawal_requests (id, user_id, amount, status, bank_name, bank_account_number, bank_account_holder, created_at) values ($1,$2,$3,$4,$5,$6,$7,$8)",
		r.ID, r.UserID, r.Amount, string(r.Status), r.Bank.BankName, r.Bank.AccountNumber, r.Bank.AccountHolder, r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return types.Conflict("withdrawal_request", "a pending request already exists")
		}
		return fmt.Errorf("create withdrawal request: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Request, error) {
	row := s.pool.QueryRow(ctx, "select "+reqColumns+" from withdrawal_requests where id = $1", id)
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, types.NotFound("withdrawal request", id)
		}
		return Request{}, fmt.Errorf("get withdrawal request: %w", err)
	}
	return r, nil
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]Request, error) {
	rows, err := s.pool.Query(ctx,
		"select "+reqColumns+" from withdrawal_requests where user_id = $1 order by created_at desc", userID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawal requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (s *PGStore) ListPending(ctx context.Context) ([]Request, error) {
	rows, err := s.pool.Query(ctx,
		"select "+reqColumns+" from withdrawal_requests where status = 'PENDING' order by created_at asc")
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawal requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (s *PGStore) Claim(ctx context.Context, id string) (bool, error) {
	return s.transition(ctx, id, types.WithdrawalStatusPending, types.WithdrawalStatusApproved)
}

func (s *PGStore) Revert(ctx context.Context, id string) (bool, error) {
	return s.transition(ctx, id, types.WithdrawalStatusApproved, types.WithdrawalStatusPending)
}

func (s *PGStore) transition(ctx context.Context, id string, from, to types.WithdrawalStatus) (bool, error) {
	cmd, err := s.pool.Exec(ctx,
		"update withdrawal_requests set status = $3 where id = $1 and status = $2",
		id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("withdrawal %s -> %s: %w", from, to, err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (s *PGStore) Complete(ctx context.Context, id, reviewer string, at time.Time) (bool, error) {
	cmd, err := s.pool.Exec(ctx,
		"update withdrawal_requests set status = 'COMPLETED', reviewed_by = $2, reviewed_at = $3 where id = $1 and status = 'APPROVED'",
		id, reviewer, at)
	if err != nil {
		return false, fmt.Errorf("complete withdrawal: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (s *PGStore) Reject(ctx context.Context, id, reviewer, reason string, at time.Time) (bool, error) {
	cmd, err := s.pool.Exec(ctx,
		"update withdrawal_requests set status = 'REJECTED', reviewed_by = $2, reject_reason = $3, reviewed_at = $4 where id = $1 and status = 'PENDING'",
		id, reviewer, reason, at)
	if err != nil {
		return false, fmt.Errorf("reject withdrawal: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (s *PGStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	cmd, err := s.pool.Exec(ctx,
		"delete from withdrawal_requests where id = $1 and user_id = $2 and status = 'PENDING'",
		id, userID)
	if err != nil {
		return false, fmt.Errorf("delete withdrawal request: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var r Request
	var status string
	err := row.Scan(&r.ID, &r.UserID, &r.Amount, &status, &r.Bank.BankName,
		&r.Bank.AccountNumber, &r.Bank.AccountHolder, &r.ReviewedBy, &r.ReviewedAt,
		&r.RejectReason, &r.CreatedAt)
	if err != nil {
		return Request{}, err
	}
	r.Status = types.WithdrawalStatus(status)
	return r, nil
}

func scanRequests(rows pgx.Rows) ([]Request, error) {
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan withdrawal requests: %w", err)
	}
	return out, nil
}

var _ Store = (*PGStore)(nil)
