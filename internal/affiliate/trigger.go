package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"bx-options/internal/ledger"
	"bx-options/internal/tier"
	"bx-options/internal/types"
)

// Trigger pays the referrer's commission on the referee's first real deposit.
// It implements the balance engine's FirstDepositHook and tolerates
// at-least-once invocation: completing the link is a conditional claim, so a
// duplicate trigger finds nothing PENDING and aborts silently.
type Trigger struct {
	store  Store
	engine *ledger.Engine
	log    logrus.FieldLogger
}

func NewTrigger(store Store, engine *ledger.Engine, log logrus.FieldLogger) *Trigger {
	return &Trigger{store: store, engine: engine, log: log}
}

func (t *Trigger) FirstRealDeposit(ctx context.Context, refereeID string, cumulativeRealDeposits decimal.Decimal) error {
	link, ok, err := t.store.GetPendingByReferee(ctx, refereeID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if link.ReferrerID == refereeID {
		return nil
	}

	// Tier is evaluated after including the current deposit.
	commission := tier.ForDeposits(cumulativeRealDeposits).Commission()

	claimed, err := t.store.Complete(ctx, refereeID, commission, time.Now().UTC())
	if err != nil {
		return err
	}
	if !claimed {
		t.log.WithField("referee_id", refereeID).Warn("affiliate link no longer pending, commission skipped")
		return nil
	}

	if _, _, err := t.engine.Append(ctx, types.RealAccount(link.ReferrerID), types.TxKindDeposit,
		commission, fmt.Sprintf("Referral commission for %s", refereeID)); err != nil {
		// The link is already COMPLETED; the credit must be replayed by an
		// operator. Loud on purpose.
		return fmt.Errorf("referral commission credit for %s: %w", link.ReferrerID, err)
	}

	t.log.WithFields(logrus.Fields{
		"referrer_id": link.ReferrerID,
		"referee_id":  refereeID,
		"commission":  commission.String(),
	}).Info("referral commission paid")
	return nil
}

var _ ledger.FirstDepositHook = (*Trigger)(nil)
