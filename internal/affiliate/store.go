package affiliate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bx-options/internal/types"
)

// Link ties a referee to their referrer. Links are created by the referral
// signup process; this package only completes them.
type Link struct {
	ReferrerID       string                `json:"referrer_id"`
	RefereeID        string                `json:"referee_id"`
	Status           types.AffiliateStatus `json:"status"`
	CommissionAmount *decimal.Decimal      `json:"commission_amount,omitempty"`
	CompletedAt      *time.Time            `json:"completed_at,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

type Store interface {
	GetPendingByReferee(ctx context.Context, refereeID string) (Link, bool, error)
	// Complete marks the link COMPLETED with the commission, only if it is
	// still PENDING. claimed=false means another trigger got there first.
	Complete(ctx context.Context, refereeID string, commission decimal.Decimal, at time.Time) (claimed bool, err error)
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) GetPendingByReferee(ctx context.Context, refereeID string) (Link, bool, error) {
	var l Link
	var status string
	err := s.pool.QueryRow(ctx,
		"select referrer_id, referee_id, status, commission_amount, completed_at, created_at from affiliate_links where referee_id = $1 and status = 'PENDING'",
		refereeID).Scan(&l.ReferrerID, &l.RefereeID, &status, &l.CommissionAmount, &l.CompletedAt, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, false, nil
		}
		return Link{}, false, fmt.Errorf("get affiliate link: %w", err)
	}
	l.Status = types.AffiliateStatus(status)
	return l, true, nil
}

func (s *PGStore) Complete(ctx context.Context, refereeID string, commission decimal.Decimal, at time.Time) (bool, error) {
	cmd, err := s.pool.Exec(ctx,
		"update affiliate_links set status = 'COMPLETED', commission_amount = $2, completed_at = $3 where referee_id = $1 and status = 'PENDING'",
		refereeID, commission, at)
	if err != nil {
		return false, fmt.Errorf("complete affiliate link: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

type MemStore struct {
	mu    sync.Mutex
	links map[string]Link
}

func NewMemStore(links ...Link) *MemStore {
	s := &MemStore{links: make(map[string]Link)}
	for _, l := range links {
		s.links[l.RefereeID] = l
	}
	return s
}

func (s *MemStore) GetPendingByReferee(ctx context.Context, refereeID string) (Link, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[refereeID]
	if !ok || l.Status != types.AffiliateStatusPending {
		return Link{}, false, nil
	}
	return l, true, nil
}

func (s *MemStore) Complete(ctx context.Context, refereeID string, commission decimal.Decimal, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[refereeID]
	if !ok || l.Status != types.AffiliateStatusPending {
		return false, nil
	}
	l.Status = types.AffiliateStatusCompleted
	l.CommissionAmount = &commission
	l.CompletedAt = &at
	s.links[refereeID] = l
	return true, nil
}

func (s *MemStore) Get(refereeID string) (Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[refereeID]
	return l, ok
}

var (
	_ Store = (*PGStore)(nil)
	_ Store = (*MemStore)(nil)
)
