package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	hasAccount() bool

	Import(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Network(ctx context.Context, args []string) error

	Balance(ctx context.Context) error
	Deposit(ctx context.Context, args []string) error
	Withdraw(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Strategy(ctx context.Context, args []string) error

	Activity(ctx context.Context, args []string) error
	Clear(ctx context.Context) error
	Earnings(ctx context.Context) error

	Profile(ctx context.Context, kind string, args []string) error
	Login(ctx context.Context) error
	Export(ctx context.Context) error
}

const (
	helpNoAccount = "Available commands: import, network, help, exit"
	helpAccount   = `Available commands:
  unlock | lock | import          manage the local key
  network <chain-id>              switch chain
  balance                         wallet and vault balances
  deposit <token> <amount>        approve if needed, then deposit
  withdraw <token> <amount>       withdraw from the vault
  send <token> <to> <amount>      transfer tokens
  strategy <token> [name]         show or change the vault strategy
  activity [all]                  recent transactions
  clear                           clear activity and earnings baseline
  earnings                        earnings estimate per vault
  onboarding|preferences|delegations [show|set|delete]
  login                           sign in to the backend
  export                          upload the ledger
  exit | quit`
)

// runREPL starts a simple read–eval–print loop for the wallet CLI.
//
// It reads a line from reader, parses the first token as the command and
// passes the rest as arguments to the matching method on a. Errors returned
// by handlers are printed and the loop continues. Handler prompts must read
// from the same reader. The loop exits on EOF or when the user types "exit"
// or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("yv %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		err = nil
		switch cmd {
		case "help":
			if a.hasAccount() {
				printlnFn(helpAccount)
			} else {
				printlnFn(helpNoAccount)
			}

		case "import":
			err = a.Import(ctx)
		case "unlock":
			err = a.Unlock(ctx)
		case "lock":
			err = a.Lock(ctx)
		case "network":
			err = a.Network(ctx, args)

		case "b", "balance":
			err = a.Balance(ctx)
		case "deposit":
			err = a.Deposit(ctx, args)
		case "withdraw":
			err = a.Withdraw(ctx, args)
		case "send":
			err = a.Send(ctx, args)
		case "strategy":
			err = a.Strategy(ctx, args)

		case "activity":
			err = a.Activity(ctx, args)
		case "clear":
			err = a.Clear(ctx)
		case "earnings":
			err = a.Earnings(ctx)

		case "onboarding", "preferences", "delegations":
			err = a.Profile(ctx, cmd, args)
		case "login":
			err = a.Login(ctx)
		case "export":
			err = a.Export(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
