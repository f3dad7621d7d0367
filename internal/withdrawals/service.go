package withdrawals

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bx-options/internal/ledger"
	"bx-options/internal/types"
	"bx-options/internal/verify"
)

// Service is the only path that debits a real account for a withdrawal.
// Demo withdrawals bypass it entirely and go straight to the balance engine.
type Service struct {
	store     Store
	engine    *ledger.Engine
	identity  verify.Status
	minAmount decimal.Decimal
	log       logrus.FieldLogger
}

func NewService(store Store, engine *ledger.Engine, identity verify.Status, minAmount decimal.Decimal, log logrus.FieldLogger) *Service {
	return &Service{store: store, engine: engine, identity: identity, minAmount: minAmount, log: log}
}

// Request validates every precondition synchronously and creates a PENDING
// request. Funds are not debited here.
func (s *Service) Request(ctx context.Context, userID string, amount decimal.Decimal) (Request, error) {
	if amount.LessThan(s.minAmount) {
		return Request{}, types.Invalid("amount", "below the minimum of "+s.minAmount.String())
	}
	docOK, err := s.identity.IsDocumentVerified(ctx, userID)
	if err != nil {
		return Request{}, err
	}
	if !docOK {
		return Request{}, types.Invalid("identity", "identity document is not verified")
	}
	selfieOK, err := s.identity.IsSelfieVerified(ctx, userID)
	if err != nil {
		return Request{}, err
	}
	if !selfieOK {
		return Request{}, types.Invalid("identity", "selfie is not verified")
	}
	bank, err := s.identity.GetBankAccount(ctx, userID)
	if err != nil {
		return Request{}, err
	}
	if bank.Empty() {
		return Request{}, types.Invalid("bank_account", "no bank account on file")
	}

	balance, err := s.engine.GetBalance(ctx, types.RealAccount(userID), ledger.FreshnessStrict)
	if err != nil {
		return Request{}, err
	}
	if balance.LessThan(amount) {
		return Request{}, &types.InsufficientFundsError{
			AccountType: types.AccountTypeReal,
			Available:   balance,
			Requested:   amount,
		}
	}

	req := Request{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Status:    types.WithdrawalStatusPending,
		Bank:      bank,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Review applies the admin decision. Approval claims the request, re-checks
// the balance, debits through the engine's atomic withdrawal path, and marks
// COMPLETED; when funds ran short since the request was made, the claim is
// reverted and the request stays PENDING for the admin to retry or reject.
func (s *Service) Review(ctx context.Context, id, reviewerID string, approve bool, reason string) (Request, error) {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}

	if !approve {
		if strings.TrimSpace(reason) == "" {
			return Request{}, types.Invalid("reason", "a rejection reason is required")
		}
		ok, err := s.store.Reject(ctx, id, reviewerID, reason, time.Now().UTC())
		if err != nil {
			return Request{}, err
		}
		if !ok {
			s.log.WithField("request_id", id).Warn("withdrawal already processed, reject skipped")
			return Request{}, types.Conflict("withdrawal_request", "already processed")
		}
		return s.store.Get(ctx, id)
	}

	claimed, err := s.store.Claim(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if !claimed {
		s.log.WithField("request_id", id).Warn("withdrawal already processed, approve skipped")
		return Request{}, types.Conflict("withdrawal_request", "already processed")
	}

	account := types.RealAccount(req.UserID)
	balance, err := s.engine.GetBalance(ctx, account, ledger.FreshnessStrict)
	if err != nil {
		s.revert(ctx, id)
		return Request{}, err
	}
	if balance.LessThan(req.Amount) {
		s.revert(ctx, id)
		return Request{}, &types.InsufficientFundsError{
			AccountType: types.AccountTypeReal,
			Available:   balance,
			Requested:   req.Amount,
		}
	}

	if _, _, err := s.engine.Append(ctx, account, types.TxKindWithdrawal, req.Amount,
		"Withdrawal request "+id); err != nil {
		// Covers the race two strict checks cannot: the engine re-verifies
		// sufficiency inside the store's atomic read-then-append.
		s.revert(ctx, id)
		return Request{}, err
	}

	if ok, err := s.store.Complete(ctx, id, reviewerID, time.Now().UTC()); err != nil || !ok {
		// Funds are debited; only the status write failed. Loud on purpose.
		s.log.WithError(err).WithField("request_id", id).
			Error("withdrawal debited but completion not recorded")
		if err != nil {
			return Request{}, err
		}
	}
	return s.store.Get(ctx, id)
}

// Cancel deletes a PENDING request. Only its owner may cancel; funds were
// never debited at request time, so the balance is untouched.
func (s *Service) Cancel(ctx context.Context, id, userID string) error {
	req, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.UserID != userID {
		return types.NotFound("withdrawal request", id)
	}
	if req.Status != types.WithdrawalStatusPending {
		return types.Conflict("withdrawal_request", "only pending requests can be cancelled")
	}
	ok, err := s.store.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		s.log.WithField("request_id", id).Warn("withdrawal cancel raced with review")
		return types.Conflict("withdrawal_request", "already processed")
	}
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Request, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) ListPending(ctx context.Context) ([]Request, error) {
	return s.store.ListPending(ctx)
}

func (s *Service) revert(ctx context.Context, id string) {
	if ok, err := s.store.Revert(ctx, id); err != nil || !ok {
		s.log.WithError(err).WithField("request_id", id).Error("withdrawal claim revert failed")
	}
}
