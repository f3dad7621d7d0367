package assets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bx-options/internal/types"
)

// Asset carries the trading bounds the settlement engine validates against.
// Catalog management happens elsewhere; this package only reads.
type Asset struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	ProfitRate decimal.Decimal `json:"profit_rate"`
	MinAmount  decimal.Decimal `json:"min_amount"`
	MaxAmount  decimal.Decimal `json:"max_amount"`
	Durations  []int           `json:"durations"`
	Active     bool            `json:"is_active"`
}

// AllowsDuration reports whether the duration in minutes is in the asset's
// allowed set.
func (a Asset) AllowsDuration(minutes int) bool {
	for _, d := range a.Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

type Store interface {
	Get(ctx context.Context, id string) (Asset, error)
	// List returns the active assets, ordered by symbol.
	List(ctx context.Context) ([]Asset, error)
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Get(ctx context.Context, id string) (Asset, error) {
	var a Asset
	err := s.pool.QueryRow(ctx,
		"select id, symbol, name, profit_rate, min_amount, max_amount, durations, is_active from assets where id = $1",
		id).Scan(&a.ID, &a.Symbol, &a.Name, &a.ProfitRate, &a.MinAmount, &a.MaxAmount, &a.Durations, &a.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, types.NotFound("asset", id)
		}
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (s *PGStore) List(ctx context.Context) ([]Asset, error) {
	rows, err := s.pool.Query(ctx,
		"select id, symbol, name, profit_rate, min_amount, max_amount, durations, is_active from assets where is_active = true order by symbol asc")
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &a.ProfitRate, &a.MinAmount, &a.MaxAmount, &a.Durations, &a.Active); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan assets: %w", err)
	}
	return out, nil
}

// MemStore serves tests and local runs.
type MemStore struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

func NewMemStore(assets ...Asset) *MemStore {
	s := &MemStore{assets: make(map[string]Asset)}
	for _, a := range assets {
		s.assets[a.ID] = a
	}
	return s
}

func (s *MemStore) Get(ctx context.Context, id string) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, types.NotFound("asset", id)
	}
	return a, nil
}

func (s *MemStore) List(ctx context.Context) ([]Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Asset
	for _, a := range s.assets {
		if a.Active {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *MemStore) Put(a Asset) {
	s.mu.Lock()
	s.assets[a.ID] = a
	s.mu.Unlock()
}

var (
	_ Store = (*PGStore)(nil)
	_ Store = (*MemStore)(nil)
)
