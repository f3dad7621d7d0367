// Package tier maps cumulative real deposits to a user status level. The
// level is a step function; each step carries the fixed referral commission
// paid when a referee at that level makes their first deposit.
package tier

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Tier string

const (
	Standard Tier = "standard"
	Gold     Tier = "gold"
	VIP      Tier = "vip"
)

var (
	goldThreshold = decimal.NewFromInt(10_000_000)
	vipThreshold  = decimal.NewFromInt(100_000_000)

	standardCommission = decimal.NewFromInt(25_000)
	goldCommission     = decimal.NewFromInt(100_000)
	vipCommission      = decimal.NewFromInt(500_000)
)

func ForDeposits(cumulative decimal.Decimal) Tier {
	switch {
	case cumulative.GreaterThanOrEqual(vipThreshold):
		return VIP
	case cumulative.GreaterThanOrEqual(goldThreshold):
		return Gold
	default:
		return Standard
	}
}

func (t Tier) Commission() decimal.Decimal {
	switch t {
	case VIP:
		return vipCommission
	case Gold:
		return goldCommission
	default:
		return standardCommission
	}
}

// Recalculator persists the user's tier after each real deposit. It
// implements the balance engine's TierRecalculator collaborator.
type Recalculator struct {
	pool *pgxpool.Pool
}

func NewRecalculator(pool *pgxpool.Pool) *Recalculator {
	return &Recalculator{pool: pool}
}

func (r *Recalculator) Recalculate(ctx context.Context, userID string, cumulativeRealDeposits decimal.Decimal) error {
	t := ForDeposits(cumulativeRealDeposits)
	_, err := r.pool.Exec(ctx, `
		insert into user_tiers (user_id, tier, cumulative_deposits, updated_at)
		values ($1, $2, $3, $4)
		on conflict (user_id) do update
		set tier = excluded.tier,
		    cumulative_deposits = excluded.cumulative_deposits,
		    updated_at = excluded.updated_at
	`, userID, string(t), cumulativeRealDeposits, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persist tier: %w", err)
	}
	return nil
}
