package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/flagx"
	"github.com/shopspring/decimal"
)

// ParseEndpoints reads "chainID=url,chainID=url".
func ParseEndpoints(s string) (map[int64]string, error) {
	out := make(map[int64]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, url, ok := strings.Cut(part, "=")
		if !ok || url == "" {
			return nil, fmt.Errorf("endpoint %q: want chainID=url", part)
		}
		chainID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("endpoint %q: %w", part, err)
		}
		out[chainID] = strings.TrimSpace(url)
	}
	return out, nil
}

func decimalFlag(dst *decimal.Decimal) func(string) error {
	return func(s string) error {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// parseFlags populates selected Config fields from command-line flags.
//
//	-r string   RPC endpoints, "chainID=url,chainID=url"
//	-n int      expected chain id
//	-t string   token registry YAML path
//	-d string   local database path
//	-u string   backend REST base URL
//	-a string   backend gRPC health address
//	-i int      online check interval in seconds
//	-s string   balance refresh cron spec
//	-l string   log level
//	-dc decimal deposit cap
//	-wc decimal withdraw cap
//
// Parse errors panic.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-n", "-t", "-d", "-u", "-a", "-i", "-s", "-l", "-dc", "-wc"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.Func("r", "RPC endpoints (chainID=url,...)", func(s string) error {
		eps, err := ParseEndpoints(s)
		if err != nil {
			return err
		}
		config.RPCEndpoints = eps
		return nil
	})
	fs.Int64Var(&config.ChainID, "n", config.ChainID, "expected chain id")
	fs.StringVar(&config.RegistryPath, "t", config.RegistryPath, "token registry path")
	fs.StringVar(&config.DatabasePath, "d", config.DatabasePath, "local database path")
	fs.StringVar(&config.ServerURL, "u", config.ServerURL, "backend REST base URL")
	fs.StringVar(&config.ServerHealthAddr, "a", config.ServerHealthAddr, "backend gRPC health address")
	checkInterval := fs.Int("i", int(config.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&config.RefreshSchedule, "s", config.RefreshSchedule, "balance refresh cron spec")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.Func("dc", "deposit cap", decimalFlag(&config.DepositCap))
	fs.Func("wc", "withdraw cap", decimalFlag(&config.WithdrawCap))

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.OnlineCheckInterval = time.Duration(*checkInterval) * time.Second
}
