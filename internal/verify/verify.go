// Package verify exposes read-only identity facts consumed by the withdrawal
// workflow's preconditions. Verification itself happens in another system.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

func (b BankAccount) Empty() bool {
	return b.AccountNumber == ""
}

type Status interface {
	IsDocumentVerified(ctx context.Context, userID string) (bool, error)
	IsSelfieVerified(ctx context.Context, userID string) (bool, error)
	GetBankAccount(ctx context.Context, userID string) (BankAccount, error)
}

type PGStatus struct {
	pool *pgxpool.Pool
}

func NewPGStatus(pool *pgxpool.Pool) *PGStatus {
	return &PGStatus{pool: pool}
}

func (s *PGStatus) IsDocumentVerified(ctx context.Context, userID string) (bool, error) {
	return s.boolFact(ctx, "document_verified", userID)
}

func (s *PGStatus) IsSelfieVerified(ctx context.Context, userID string) (bool, error) {
	return s.boolFact(ctx, "selfie_verified", userID)
}

func (s *PGStatus) boolFact(ctx context.Context, column, userID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		"select "+column+" from user_verification where user_id = $1", userID).Scan(&ok)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", column, err)
	}
	return ok, nil
}

func (s *PGStatus) GetBankAccount(ctx context.Context, userID string) (BankAccount, error) {
	var b BankAccount
	err := s.pool.QueryRow(ctx,
		"select bank_name, bank_account_number, bank_account_holder from user_verification where user_id = $1",
		userID).Scan(&b.BankName, &b.AccountNumber, &b.AccountHolder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, nil
		}
		return BankAccount{}, fmt.Errorf("read bank account: %w", err)
	}
	return b, nil
}

// StaticStatus returns fixed facts; used by tests and local runs.
type StaticStatus struct {
	DocumentOK bool
	SelfieOK   bool
	Bank       BankAccount
}

func (s StaticStatus) IsDocumentVerified(ctx context.Context, userID string) (bool, error) {
	return s.DocumentOK, nil
}

func (s StaticStatus) IsSelfieVerified(ctx context.Context, userID string) (bool, error) {
	return s.SelfieOK, nil
}

func (s StaticStatus) GetBankAccount(ctx context.Context, userID string) (BankAccount, error) {
	return s.Bank, nil
}

var (
	_ Status = (*PGStatus)(nil)
	_ Status = StaticStatus{}
)
