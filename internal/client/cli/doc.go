// Package cli provides the interactive yieldvault wallet client.
//
// It wires configuration, the local SQLite store, the chain connection and
// the backend client into an interactive REPL. Typical flow: restore the
// stored account read-only, connect to the configured chain, unlock with the
// passphrase and move funds.
//
// Key features:
//   - Import / Unlock / Lock of a single passphrase-sealed key
//   - Balances, deposit (approving first when needed), withdraw and send
//   - Recent activity and the running earnings estimate
//   - Onboarding, preferences and delegation records on the backend
//   - Wallet sign-in and ledger export
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
