package cli

import (
	"io"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/client/services"
	"github.com/dmitrijs2005/yieldvault/internal/ledger"
	"github.com/olekukonko/tablewriter"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func renderBalances(w io.Writer, balances []services.Balance) {
	t := newTable(w, "Token", "Wallet", "Vault")
	for _, b := range balances {
		vault := "not deployed"
		if b.HasVault {
			vault = b.Vault.String()
		}
		t.Append([]string{b.Symbol, b.Wallet.String(), vault})
	}
	t.Render()
}

func renderActivity(w io.Writer, records []ledger.Record) {
	t := newTable(w, "When", "Type", "Amount", "Token", "Status", "Tx")
	for _, r := range records {
		t.Append([]string{
			r.Timestamp.Local().Format(time.DateTime),
			string(r.Kind),
			r.Amount.String(),
			r.Token,
			string(r.Status),
			shortHash(r.TxHash),
		})
	}
	t.Render()
}

func renderEarnings(w io.Writer, positions []services.Position) {
	t := newTable(w, "Vault", "Balance", "Principal", "Earnings")
	for _, p := range positions {
		t.Append([]string{p.Symbol, p.Balance.String(), p.Principal.String(), p.Earnings.String()})
	}
	t.Render()
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:10] + "…" + h[len(h)-4:]
}
