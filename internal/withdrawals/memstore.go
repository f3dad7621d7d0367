package withdrawals

import (
	"context"
	"sort"
	"sync"
	"time"

	"bx-options/internal/types"
)

type MemStore struct {
	mu       sync.Mutex
	requests map[string]Request
}

func NewMemStore() *MemStore {
	return &MemStore{requests: make(map[string]Request)}
}

func (s *MemStore) Create(ctx context.Context, r Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.requests {
		if existing.UserID == r.UserID && existing.Status == types.WithdrawalStatusPending {
			return types.Conflict("withdrawal_request", "a pending request already exists")
		}
	}
	s.requests[r.ID] = r
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return Request{}, types.NotFound("withdrawal request", id)
	}
	return r, nil
}

func (s *MemStore) ListByUser(ctx context.Context, userID string) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) ListPending(ctx context.Context) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Status == types.WithdrawalStatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) Claim(ctx context.Context, id string) (bool, error) {
	return s.transition(id, types.WithdrawalStatusPending, types.WithdrawalStatusApproved)
}

func (s *MemStore) Revert(ctx context.Context, id string) (bool, error) {
	return s.transition(id, types.WithdrawalStatusApproved, types.WithdrawalStatusPending)
}

func (s *MemStore) transition(id string, from, to types.WithdrawalStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	s.requests[id] = r
	return true, nil
}

func (s *MemStore) Complete(ctx context.Context, id, reviewer string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != types.WithdrawalStatusApproved {
		return false, nil
	}
	r.Status = types.WithdrawalStatusCompleted
	r.ReviewedBy = &reviewer
	r.ReviewedAt = &at
	s.requests[id] = r
	return true, nil
}

func (s *MemStore) Reject(ctx context.Context, id, reviewer, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != types.WithdrawalStatusPending {
		return false, nil
	}
	r.Status = types.WithdrawalStatusRejected
	r.ReviewedBy = &reviewer
	r.ReviewedAt = &at
	r.RejectReason = &reason
	s.requests[id] = r
	return true, nil
}

func (s *MemStore) Delete(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.UserID != userID || r.Status != types.WithdrawalStatusPending {
		return false, nil
	}
	delete(s.requests, id)
	return true, nil
}

var _ Store = (*MemStore)(nil)
