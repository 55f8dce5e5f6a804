package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/flagx"
	"github.com/dmitrijs2005/yieldvault/internal/timex"
	"github.com/shopspring/decimal"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations use
// timex.Duration ("3s" or integer nanoseconds); amounts accept JSON numbers
// or strings. Absent fields leave the current value untouched.
type JsonConfig struct {
	RPCEndpoints        map[string]string   `json:"rpc_endpoints"`
	ChainID             int64               `json:"chain_id"`
	RegistryPath        string              `json:"registry_path"`
	ReceiptTimeout      timex.Duration      `json:"receipt_timeout"`
	SettleDelay         *timex.Duration     `json:"settle_delay"`
	DepositCap          decimal.NullDecimal `json:"deposit_cap"`
	WithdrawCap         decimal.NullDecimal `json:"withdraw_cap"`
	DatabasePath        string              `json:"database_path"`
	LedgerMaxEntries    int                 `json:"ledger_max_entries"`
	LedgerRecentSize    int                 `json:"ledger_recent_size"`
	DedupTolerance      decimal.NullDecimal `json:"dedup_tolerance"`
	DedupWindow         timex.Duration      `json:"dedup_window"`
	ServerURL           string              `json:"server_url"`
	ServerHealthAddr    string              `json:"server_health_addr"`
	OnlineCheckInterval timex.Duration      `json:"online_check_interval"`
	RefreshSchedule     string              `json:"refresh_schedule"`
	LogLevel            string              `json:"log_level"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// It panics on read, unmarshal or endpoint key errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if len(jc.RPCEndpoints) > 0 {
		eps := make(map[int64]string, len(jc.RPCEndpoints))
		for k, v := range jc.RPCEndpoints {
			id, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				panic(fmt.Errorf("rpc_endpoints key %q: %w", k, err))
			}
			eps[id] = v
		}
		cfg.RPCEndpoints = eps
	}
	if jc.ChainID != 0 {
		cfg.ChainID = jc.ChainID
	}
	setString(&cfg.RegistryPath, jc.RegistryPath)
	setDuration(&cfg.ReceiptTimeout, jc.ReceiptTimeout)
	// zero is a meaningful settle delay, so presence is tracked by pointer
	if jc.SettleDelay != nil {
		cfg.SettleDelay = jc.SettleDelay.Duration
	}
	setDecimal(&cfg.DepositCap, jc.DepositCap)
	setDecimal(&cfg.WithdrawCap, jc.WithdrawCap)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	if jc.LedgerMaxEntries > 0 {
		cfg.LedgerMaxEntries = jc.LedgerMaxEntries
	}
	if jc.LedgerRecentSize > 0 {
		cfg.LedgerRecentSize = jc.LedgerRecentSize
	}
	setDecimal(&cfg.DedupTolerance, jc.DedupTolerance)
	setDuration(&cfg.DedupWindow, jc.DedupWindow)
	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.ServerHealthAddr, jc.ServerHealthAddr)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setString(&cfg.RefreshSchedule, jc.RefreshSchedule)
	setString(&cfg.LogLevel, jc.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

func setDecimal(dst *decimal.Decimal, v decimal.NullDecimal) {
	if v.Valid {
		*dst = v.Decimal
	}
}
