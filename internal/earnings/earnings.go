// Package earnings estimates how much of a vault position is yield, by
// tracking a locally persisted principal baseline.
//
// The estimate is approximate: the first non-zero balance seen for an
// account is taken as principal in full, so yield accrued before that point
// is never reported.
package earnings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type Store interface {
	GetVersioned(ctx context.Context, key string) ([]byte, int64, error)
	CompareAndSet(ctx context.Context, key string, value []byte, expected int64) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Estimate splits a vault balance into principal and earnings.
type Estimate struct {
	Balance   decimal.Decimal
	Principal decimal.Decimal
	Earnings  decimal.Decimal
}

// Compute never reports negative earnings.
func Compute(balance, baseline decimal.Decimal) Estimate {
	earned := balance.Sub(baseline)
	if earned.IsNegative() {
		earned = decimal.Zero
	}
	return Estimate{Balance: balance, Principal: baseline, Earnings: earned}
}

// Key is the store key for an account's baseline in one token's vault.
func Key(account ethcommon.Address, symbol string) string {
	return "baseline:" + strings.ToLower(account.Hex()) + ":" + strings.ToUpper(symbol)
}

type Tracker struct {
	store      Store
	key        string
	maxRetries int
	log        logging.Logger

	mu sync.Mutex
}

func NewTracker(store Store, account ethcommon.Address, symbol string, log logging.Logger) *Tracker {
	return &Tracker{
		store:      store,
		key:        Key(account, symbol),
		maxRetries: 5,
		log:        log.With("module", "earnings", "token", strings.ToUpper(symbol)),
	}
}

// Baseline returns the stored principal; ok is false when none is stored.
func (t *Tracker) Baseline(ctx context.Context) (decimal.Decimal, bool, error) {
	b, _, ok, err := t.read(ctx)
	return b, ok, err
}

// Observe records a balance reading. The first non-zero reading with no
// stored baseline becomes the baseline.
func (t *Tracker) Observe(ctx context.Context, balance decimal.Decimal) (Estimate, error) {
	b, err := t.update(ctx, func(baseline decimal.Decimal, ok bool) (decimal.Decimal, bool) {
		if ok || !balance.IsPositive() {
			return baseline, false
		}
		return balance, true
	})
	if err != nil {
		return Estimate{}, err
	}
	return Compute(balance, b), nil
}

// ApplyDeposit raises the baseline by the observed increase in balance,
// not by the requested deposit amount.
func (t *Tracker) ApplyDeposit(ctx context.Context, before, after decimal.Decimal) (Estimate, error) {
	delta := after.Sub(before)
	b, err := t.update(ctx, func(baseline decimal.Decimal, ok bool) (decimal.Decimal, bool) {
		if !ok {
			if !after.IsPositive() {
				return baseline, false
			}
			return after, true
		}
		if !delta.IsPositive() {
			return baseline, false
		}
		return baseline.Add(delta), true
	})
	if err != nil {
		return Estimate{}, err
	}
	return Compute(after, b), nil
}

// ApplyWithdraw lowers the baseline by the observed drop in balance,
// never below zero.
func (t *Tracker) ApplyWithdraw(ctx context.Context, before, after decimal.Decimal) (Estimate, error) {
	drop := before.Sub(after)
	b, err := t.update(ctx, func(baseline decimal.Decimal, ok bool) (decimal.Decimal, bool) {
		if !ok || !drop.IsPositive() {
			return baseline, false
		}
		next := baseline.Sub(drop)
		if next.IsNegative() {
			next = decimal.Zero
		}
		return next, true
	})
	if err != nil {
		return Estimate{}, err
	}
	return Compute(after, b), nil
}

// Reset forgets the baseline.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.store.Delete(ctx, t.key); err != nil {
		return fmt.Errorf("reset baseline: %w", err)
	}
	return nil
}

// update applies fn to the stored baseline under compare-and-set. fn returns
// the new baseline and whether it should be written.
func (t *Tracker) update(ctx context.Context, fn func(baseline decimal.Decimal, ok bool) (decimal.Decimal, bool)) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for attempt := 0; ; attempt++ {
		baseline, version, ok, err := t.read(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		next, changed := fn(baseline, ok)
		if !changed {
			return baseline, nil
		}

		_, err = t.store.CompareAndSet(ctx, t.key, []byte(next.String()), version)
		if err == nil {
			t.log.Debug(ctx, "baseline updated", "from", baseline.String(), "to", next.String())
			return next, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) || attempt >= t.maxRetries {
			return decimal.Zero, fmt.Errorf("write baseline: %w", err)
		}
	}
}

func (t *Tracker) read(ctx context.Context) (decimal.Decimal, int64, bool, error) {
	raw, version, err := t.store.GetVersioned(ctx, t.key)
	if err != nil {
		return decimal.Zero, 0, false, fmt.Errorf("read baseline: %w", err)
	}
	if len(raw) == 0 {
		return decimal.Zero, version, false, nil
	}
	b, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Zero, 0, false, fmt.Errorf("decode baseline %q: %w", raw, err)
	}
	return b, version, true, nil
}
