package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/robfig/cron/v3"
)

const refreshTimeout = 20 * time.Second

// BalanceWatcher periodically re-reads vault positions so the earnings
// estimate keeps up with accrued yield.
type BalanceWatcher struct {
	cron     *cron.Cron
	funds    FundsService
	log      logging.Logger
	onUpdate func([]Position)
}

// NewBalanceWatcher registers the refresh job under spec, a standard cron
// expression or a descriptor such as "@every 30s". onUpdate may be nil.
func NewBalanceWatcher(spec string, funds FundsService, log logging.Logger, onUpdate func([]Position)) (*BalanceWatcher, error) {
	w := &BalanceWatcher{
		cron:     cron.New(),
		funds:    funds,
		log:      log.With("module", "watcher"),
		onUpdate: onUpdate,
	}
	if _, err := w.cron.AddFunc(spec, w.Refresh); err != nil {
		return nil, fmt.Errorf("register balance refresh %q: %w", spec, err)
	}
	return w, nil
}

func (w *BalanceWatcher) Start() {
	w.cron.Start()
}

// Stop waits for a running refresh to finish.
func (w *BalanceWatcher) Stop() {
	<-w.cron.Stop().Done()
}

// Refresh runs one refresh. A wallet with no account or connection is
// skipped quietly.
func (w *BalanceWatcher) Refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if w.funds.Busy() {
		w.log.Debug(ctx, "operation in flight, refresh skipped")
		return
	}

	positions, err := w.funds.Earnings(ctx)
	if err != nil {
		w.log.Debug(ctx, "balance refresh failed", "error", err)
		return
	}
	if w.onUpdate != nil {
		w.onUpdate(positions)
	}
}
