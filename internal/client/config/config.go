package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds runtime settings for the yieldvault wallet CLI.
type Config struct {
	// Chain access.
	RPCEndpoints   map[int64]string
	ChainID        int64
	RegistryPath   string
	ReceiptTimeout time.Duration
	SettleDelay    time.Duration

	// Per-transaction ceilings in token units. Zero disables a cap.
	DepositCap  decimal.Decimal
	WithdrawCap decimal.Decimal

	// Ledger bookkeeping.
	DatabasePath     string
	LedgerMaxEntries int
	LedgerRecentSize int
	DedupTolerance   decimal.Decimal
	DedupWindow      time.Duration

	// Backend.
	ServerURL           string
	ServerHealthAddr    string
	OnlineCheckInterval time.Duration

	// RefreshSchedule is a cron spec for the vault balance watcher.
	RefreshSchedule string
	LogLevel        string
}

// LoadDefaults populates c with development defaults: a local node on the
// Sepolia chain id and the backend on localhost.
func (c *Config) LoadDefaults() {
	c.RPCEndpoints = map[int64]string{
		11155111: "http://127.0.0.1:8545",
	}
	c.ChainID = 11155111
	c.RegistryPath = "tokens.yaml"
	c.ReceiptTimeout = 2 * time.Minute
	c.SettleDelay = 2 * time.Second

	c.DepositCap = decimal.NewFromInt(100000)
	c.WithdrawCap = decimal.NewFromInt(50000)

	c.DatabasePath = "yieldvault.db"
	c.LedgerMaxEntries = 20
	c.LedgerRecentSize = 5
	c.DedupTolerance = decimal.RequireFromString("0.01")
	c.DedupWindow = 5 * time.Second

	c.ServerURL = "http://127.0.0.1:8080"
	c.ServerHealthAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second

	c.RefreshSchedule = "@every 30s"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
