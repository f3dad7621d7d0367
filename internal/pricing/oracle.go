package pricing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"bx-options/internal/cache"
)

// Tier selects how fresh a cached price must be for the caller's purpose.
type Tier int

const (
	// TierFast is used for order placement.
	TierFast Tier = iota
	// TierNormal is used for display and settlement.
	TierNormal
)

func (t Tier) maxAge() time.Duration {
	if t == TierFast {
		return 1500 * time.Millisecond
	}
	return 4 * time.Second
}

const (
	staleWindow    = 2 * time.Minute
	cooldownPeriod = 60 * time.Second
)

// Oracle caches prices from an unreliable upstream. Concurrent misses for one
// asset coalesce into a single upstream call; failures fall back to any value
// still inside the stale window; a rate-limit signal suspends upstream calls
// for a cooldown.
type Oracle struct {
	source       Source
	quotes       *cache.Cache[string, Quote]
	group        singleflight.Group
	fetchTimeout time.Duration
	log          logrus.FieldLogger

	mu            sync.Mutex
	cooldownUntil time.Time
}

func NewOracle(source Source, fetchTimeout time.Duration, log logrus.FieldLogger) *Oracle {
	return &Oracle{
		source:       source,
		quotes:       cache.New[string, Quote](staleWindow, 30*time.Second),
		fetchTimeout: fetchTimeout,
		log:          log,
	}
}

func (o *Oracle) Close() { o.quotes.Close() }

func (o *Oracle) GetPrice(ctx context.Context, assetID string, tier Tier) (Quote, error) {
	if q, ok := o.quotes.GetStale(assetID, tier.maxAge()); ok {
		return q, nil
	}
	if o.coolingDown() {
		return o.staleOrUnavailable(assetID)
	}

	v, err, _ := o.group.Do(assetID, func() (any, error) {
		// Bounded by its own timeout rather than the caller's context, so one
		// impatient caller cannot cancel the fetch for coalesced waiters.
		fctx, cancel := context.WithTimeout(context.Background(), o.fetchTimeout)
		defer cancel()
		q, err := o.source.Fetch(fctx, assetID)
		if err != nil {
			return Quote{}, err
		}
		o.quotes.Set(assetID, q, tier.maxAge())
		return q, nil
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			o.startCooldown()
		}
		return o.staleOrUnavailable(assetID)
	}
	return v.(Quote), nil
}

// GetPriceForSettlement returns ok=false when no usable price exists.
// That is a legitimate outcome the settlement engine handles by deferral.
func (o *Oracle) GetPriceForSettlement(ctx context.Context, assetID string) (Quote, bool) {
	q, err := o.GetPrice(ctx, assetID, TierNormal)
	if err != nil {
		return Quote{}, false
	}
	return q, true
}

func (o *Oracle) staleOrUnavailable(assetID string) (Quote, error) {
	if q, ok := o.quotes.GetStale(assetID, staleWindow); ok {
		o.log.WithField("asset_id", assetID).Debug("serving stale price")
		return q, nil
	}
	return Quote{}, ErrUnavailable
}

func (o *Oracle) coolingDown() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return time.Now().Before(o.cooldownUntil)
}

func (o *Oracle) startCooldown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if time.Now().Before(o.cooldownUntil) {
		return
	}
	o.cooldownUntil = time.Now().Add(cooldownPeriod)
	o.log.WithField("until", o.cooldownUntil.Format(time.RFC3339)).
		Warn("price source rate limited, suspending upstream calls")
}
