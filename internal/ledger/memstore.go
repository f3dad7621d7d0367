package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"bx-options/internal/types"
)

// MemStore keeps the ledger in memory behind one mutex, so every
// ReadThenAppend is trivially atomic. It backs the test suite and local runs
// without a database.
type MemStore struct {
	mu  sync.Mutex
	txs map[string][]Transaction
}

func NewMemStore() *MemStore {
	return &MemStore{txs: make(map[string][]Transaction)}
}

func (s *MemStore) Append(ctx context.Context, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := types.Account{UserID: tx.UserID, Type: tx.AccountType}.Key()
	s.txs[key] = append(s.txs[key], tx)
	return nil
}

func (s *MemStore) Query(ctx context.Context, account types.Account) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(account), nil
}

func (s *MemStore) History(ctx context.Context, account types.Account, page, limit int) ([]Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.snapshot(account)
	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *MemStore) Balance(ctx context.Context, account types.Account) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Sum(s.txs[account.Key()]), nil
}

func (s *MemStore) ReadThenAppend(ctx context.Context, account types.Account, fn AppendFn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.snapshot(account))
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	key := types.Account{UserID: next.UserID, Type: next.AccountType}.Key()
	s.txs[key] = append(s.txs[key], *next)
	return nil
}

// snapshot returns a newest-first copy. Callers hold s.mu.
func (s *MemStore) snapshot(account types.Account) []Transaction {
	src := s.txs[account.Key()]
	out := make([]Transaction, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var _ Storage = (*MemStore)(nil)
