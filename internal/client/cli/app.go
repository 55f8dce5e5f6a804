package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/client/client"
	"github.com/dmitrijs2005/yieldvault/internal/client/config"
	"github.com/dmitrijs2005/yieldvault/internal/client/services"
	"github.com/dmitrijs2005/yieldvault/internal/ledger"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/dmitrijs2005/yieldvault/internal/orchestrator"
	"github.com/dmitrijs2005/yieldvault/internal/token"
	"github.com/dmitrijs2005/yieldvault/internal/wallet"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	accounts services.AccountService
	funds    services.FundsService
	profiles services.ProfileService
	watcher  *services.BalanceWatcher
	reader   *bufio.Reader
	out      io.Writer

	mu   sync.Mutex
	mode Mode

	closers []func()
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, logging.ParseLevel(c.LogLevel))

	registry, err := token.LoadRegistry(c.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load token registry: %w", err)
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api, err := client.NewBackendClient(c.ServerURL, c.ServerHealthAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	w := wallet.New(c.RPCEndpoints, wallet.DialEthereum, c.ReceiptTimeout, logger)
	orch := orchestrator.New(orchestrator.Config{
		ChainID:     c.ChainID,
		DepositCap:  c.DepositCap,
		WithdrawCap: c.WithdrawCap,
		SettleDelay: c.SettleDelay,
	}, w, logger)

	accounts := services.NewAccountService(w, db, logger)
	funds := services.NewFundsService(w, registry, orch, db, ledgerConfig(c), logger)
	profiles := services.NewProfileService(api, accounts, funds, logger)

	app := &App{
		config:   c,
		log:      logger,
		accounts: accounts,
		funds:    funds,
		profiles: profiles,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		closers:  []func(){w.Close, func() { _ = api.Close() }, func() { _ = db.Close() }},
	}
	funds.SetListener(app.printEvent)

	app.watcher, err = services.NewBalanceWatcher(c.RefreshSchedule, funds, logger, nil)
	if err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func ledgerConfig(c *config.Config) ledger.Config {
	cfg := ledger.DefaultConfig()
	cfg.MaxEntries = c.LedgerMaxEntries
	cfg.RecentSize = c.LedgerRecentSize
	cfg.DedupTolerance = c.DedupTolerance
	cfg.DedupWindow = c.DedupWindow
	return cfg
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Run restores the stored account, connects to the configured chain and
// blocks in the REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to yieldvault (type 'help' for commands)")

	if addr, err := a.accounts.Restore(ctx); err == nil {
		printlnFn("Account:", addr.Hex(), "(locked, type 'unlock')")
	} else {
		printlnFn("No account yet, type 'import' to add a private key")
	}

	if err := a.accounts.SwitchNetwork(ctx, a.config.ChainID); err != nil {
		printlnFn("Chain unavailable:", err)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.watcher.Start()
	defer a.watcher.Stop()

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.log.Info(context.Background(), "backend connectivity changed", "mode", string(mode))
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// StartOnlineStatusWatcher pings the backend every interval and flips the
// mode between online and offline. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.profiles.Ping(pctx); err != nil {
			a.setMode(ModeOffline)
			return
		}
		a.setMode(ModeOnline)
	}
	check()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) hasAccount() bool {
	return a.accounts.Address() != (ethcommon.Address{})
}

// getStatus renders the prompt decoration, e.g. "(0x71c7…976f unlocked chain 11155111 online)".
func (a *App) getStatus() string {
	var parts []string
	if a.hasAccount() {
		parts = append(parts, shortAddress(a.accounts.Address().Hex()))
		if a.accounts.Unlocked() {
			parts = append(parts, "unlocked")
		} else {
			parts = append(parts, "locked")
		}
	}
	if id := a.accounts.ChainID(); id != 0 {
		parts = append(parts, fmt.Sprintf("chain %d", id))
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func shortAddress(hex string) string {
	if len(hex) < 10 {
		return hex
	}
	return strings.ToLower(hex[:6] + "…" + hex[len(hex)-4:])
}
