package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/yieldvault/internal/ledger"
	"github.com/dmitrijs2005/yieldvault/internal/orchestrator"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// printEvent reports orchestrator step transitions as they happen.
func (a *App) printEvent(e orchestrator.Event) {
	line := fmt.Sprintf("  %-8s %s", e.Step, e.Status)
	if e.TxHash != (ethcommon.Hash{}) {
		line += " " + e.TxHash.Hex()
	}
	if e.Err != nil {
		line += ": " + e.Err.Error()
	}
	fmt.Fprintln(a.out, line)
}

func (a *App) Balance(ctx context.Context) error {
	balances, err := a.funds.Balances(ctx)
	if err != nil {
		return err
	}
	renderBalances(a.out, balances)
	return nil
}

func (a *App) Deposit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: deposit <token> <amount>")
	}
	res, err := a.funds.Deposit(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deposited %s %s (tx %s)\n", res.Amount, res.Token.Symbol, res.TxHash.Hex())
	return nil
}

func (a *App) Withdraw(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: withdraw <token> <amount>")
	}
	res, err := a.funds.Withdraw(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Withdrew %s %s (tx %s)\n", res.Amount, res.Token.Symbol, res.TxHash.Hex())
	return nil
}

func (a *App) Send(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: send <token> <to> <amount>")
	}
	res, err := a.funds.Send(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sent %s %s to %s (tx %s)\n", res.Amount, res.Token.Symbol, args[1], res.TxHash.Hex())
	return nil
}

// Strategy shows the vault's strategy, or switches it when a name is given.
func (a *App) Strategy(ctx context.Context, args []string) error {
	switch len(args) {
	case 1:
		name, addr, err := a.funds.Strategy(ctx, args[0])
		if err != nil {
			return err
		}
		if name == "" {
			name = "unnamed"
		}
		fmt.Fprintf(a.out, "%s strategy: %s (%s)\n", strings.ToUpper(args[0]), name, addr.Hex())
		return nil
	case 2:
		hash, err := a.funds.SetStrategy(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s strategy set to %s (tx %s)\n", strings.ToUpper(args[0]), args[1], hash.Hex())
		return nil
	default:
		return fmt.Errorf("usage: strategy <token> [name]")
	}
}

// Activity prints the recent view, or the whole ledger with "all".
func (a *App) Activity(ctx context.Context, args []string) error {
	var (
		records []ledger.Record
		err     error
	)
	if len(args) > 0 && args[0] == "all" {
		records, err = a.funds.History(ctx)
	} else {
		records, err = a.funds.Activity(ctx)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No activity yet")
		return nil
	}
	renderActivity(a.out, records)
	return nil
}

// Clear asks for confirmation before wiping the activity and baselines.
func (a *App) Clear(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "Clear all activity and reset the earnings baseline? (yes/no)", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}
	if err := a.funds.ClearActivity(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Activity cleared")
	return nil
}

func (a *App) Earnings(ctx context.Context) error {
	positions, err := a.funds.Earnings(ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		fmt.Fprintln(a.out, "No vaults configured")
		return nil
	}
	renderEarnings(a.out, positions)
	return nil
}
