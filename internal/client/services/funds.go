package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/dbx"
	"github.com/dmitrijs2005/yieldvault/internal/earnings"
	"github.com/dmitrijs2005/yieldvault/internal/erc20"
	"github.com/dmitrijs2005/yieldvault/internal/ledger"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/dmitrijs2005/yieldvault/internal/orchestrator"
	"github.com/dmitrijs2005/yieldvault/internal/token"
	"github.com/dmitrijs2005/yieldvault/internal/vault"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Balance is one token's holdings: in the wallet and deposited in its vault.
type Balance struct {
	Symbol   string
	Wallet   decimal.Decimal
	Vault    decimal.Decimal
	HasVault bool
}

// Position is the earnings estimate for one vault.
type Position struct {
	Symbol string
	earnings.Estimate
}

// FundsService moves funds and keeps the local activity ledger and
// earnings baselines in step with what was confirmed on chain.
type FundsService interface {
	SetListener(l orchestrator.Listener)
	State() orchestrator.State
	// Busy is true while a fund movement, including its bookkeeping, runs.
	Busy() bool
	Tokens() []token.Token

	Balances(ctx context.Context) ([]Balance, error)
	Deposit(ctx context.Context, symbol, amount string) (orchestrator.Result, error)
	Withdraw(ctx context.Context, symbol, amount string) (orchestrator.Result, error)
	Send(ctx context.Context, symbol, to, amount string) (orchestrator.Result, error)

	Activity(ctx context.Context) ([]ledger.Record, error)
	History(ctx context.Context) ([]ledger.Record, error)
	ClearActivity(ctx context.Context) error

	Earnings(ctx context.Context) ([]Position, error)

	Strategy(ctx context.Context, symbol string) (string, ethcommon.Address, error)
	SetStrategy(ctx context.Context, symbol, name string) (ethcommon.Hash, error)
}

type fundsService struct {
	account  Account
	registry *token.Registry
	orch     *orchestrator.Orchestrator
	db       *sql.DB
	cfg      ledger.Config
	log      logging.Logger

	moving atomic.Int32

	mu       sync.Mutex
	ledgers  map[ethcommon.Address]*ledger.Ledger
	trackers map[string]*earnings.Tracker
}

func NewFundsService(account Account, registry *token.Registry, orch *orchestrator.Orchestrator, db *sql.DB, cfg ledger.Config, log logging.Logger) FundsService {
	return &fundsService{
		account:  account,
		registry: registry,
		orch:     orch,
		db:       db,
		cfg:      cfg,
		log:      log.With("module", "funds"),
		ledgers:  map[ethcommon.Address]*ledger.Ledger{},
		trackers: map[string]*earnings.Tracker{},
	}
}

func (s *fundsService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

func (s *fundsService) SetListener(l orchestrator.Listener) {
	s.orch.SetListener(l)
}

func (s *fundsService) State() orchestrator.State {
	return s.orch.State()
}

func (s *fundsService) Busy() bool {
	return s.moving.Load() > 0 || s.orch.InFlight()
}

func (s *fundsService) Tokens() []token.Token {
	return s.registry.All()
}

func (s *fundsService) owner() (ethcommon.Address, error) {
	addr := s.account.Address()
	if addr == (ethcommon.Address{}) {
		return ethcommon.Address{}, ErrNoAccount
	}
	return addr, nil
}

// ledgerFor returns the cached ledger for account, loading it on first use.
func (s *fundsService) ledgerFor(ctx context.Context, account ethcommon.Address) (*ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.ledgers[account]; ok {
		return l, nil
	}
	l := ledger.New(s.getMetadataRepo(), account, s.cfg, s.log)
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	s.ledgers[account] = l
	return l, nil
}

func (s *fundsService) trackerFor(account ethcommon.Address, symbol string) *earnings.Tracker {
	key := earnings.Key(account, symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[key]
	if !ok {
		t = earnings.NewTracker(s.getMetadataRepo(), account, symbol, s.log)
		s.trackers[key] = t
	}
	return t
}

func (s *fundsService) Balances(ctx context.Context) ([]Balance, error) {
	account, err := s.owner()
	if err != nil {
		return nil, err
	}
	c, err := s.account.Client()
	if err != nil {
		return nil, err
	}

	var out []Balance
	for _, tok := range s.registry.All() {
		raw, err := erc20.New(c, tok.Address).BalanceOf(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("%s balance: %w", tok.Symbol, err)
		}
		b := Balance{Symbol: tok.Symbol, Wallet: token.FromBaseUnits(raw, tok.Decimals), HasVault: tok.HasVault()}
		if b.HasVault {
			b.Vault, err = vaultBalance(ctx, c, tok, account)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func vaultBalance(ctx context.Context, c chain.Client, tok token.Token, account ethcommon.Address) (decimal.Decimal, error) {
	raw, err := vault.New(c, tok.Vault).BalanceOf(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s vault balance: %w", tok.Symbol, err)
	}
	return token.FromBaseUnits(raw, tok.Decimals), nil
}

// snapshot reads the vault position without failing the caller; ok is false
// when it could not be read.
func (s *fundsService) snapshot(ctx context.Context, tok token.Token) (decimal.Decimal, bool) {
	if !tok.HasVault() {
		return decimal.Zero, false
	}
	c, err := s.account.Client()
	if err != nil {
		return decimal.Zero, false
	}
	b, err := vaultBalance(ctx, c, tok, s.account.Address())
	if err != nil {
		s.log.Warn(ctx, "vault balance unavailable", "token", tok.Symbol, "error", err)
		return decimal.Zero, false
	}
	return b, true
}

func (s *fundsService) Deposit(ctx context.Context, symbol, amount string) (orchestrator.Result, error) {
	s.moving.Add(1)
	defer s.moving.Add(-1)

	tok, err := s.registry.Lookup(symbol)
	if err != nil {
		return orchestrator.Result{}, err
	}
	before, haveBefore := s.snapshot(ctx, tok)

	res, err := s.orch.Deposit(ctx, tok, amount)
	if err != nil {
		return res, err
	}

	ctx = context.WithoutCancel(ctx)
	s.record(ctx, ledger.KindDeposit, res)
	s.settle(ctx, tok, before, haveBefore, (*earnings.Tracker).ApplyDeposit)
	return res, nil
}

func (s *fundsService) Withdraw(ctx context.Context, symbol, amount string) (orchestrator.Result, error) {
	s.moving.Add(1)
	defer s.moving.Add(-1)

	tok, err := s.registry.Lookup(symbol)
	if err != nil {
		return orchestrator.Result{}, err
	}
	before, haveBefore := s.snapshot(ctx, tok)

	res, err := s.orch.Withdraw(ctx, tok, amount)
	if err != nil {
		return res, err
	}

	ctx = context.WithoutCancel(ctx)
	s.record(ctx, ledger.KindWithdraw, res)
	s.settle(ctx, tok, before, haveBefore, (*earnings.Tracker).ApplyWithdraw)
	return res, nil
}

func (s *fundsService) Send(ctx context.Context, symbol, to, amount string) (orchestrator.Result, error) {
	s.moving.Add(1)
	defer s.moving.Add(-1)

	tok, err := s.registry.Lookup(symbol)
	if err != nil {
		return orchestrator.Result{}, err
	}
	res, err := s.orch.Send(ctx, tok, to, amount)
	if err != nil {
		return res, err
	}
	s.record(context.WithoutCancel(ctx), ledger.KindSend, res)
	return res, nil
}

// record writes a confirmed result to the ledger. Storage failures are only
// logged: the transaction is already on chain.
func (s *fundsService) record(ctx context.Context, kind ledger.Kind, res orchestrator.Result) {
	l, err := s.ledgerFor(ctx, s.account.Address())
	if err == nil {
		_, _, err = l.Record(ctx, ledger.Entry{
			Kind:   kind,
			Amount: res.Amount,
			Token:  res.Token.Symbol,
			TxHash: res.TxHash.Hex(),
		})
	}
	if err != nil {
		s.log.Error(ctx, "failed to record activity", "kind", string(kind), "tx", res.TxHash.Hex(), "error", err)
	}
}

type applyFunc func(t *earnings.Tracker, ctx context.Context, before, after decimal.Decimal) (earnings.Estimate, error)

// settle moves the baseline by the observed change in vault balance. Without
// a usable "before" reading it falls back to a plain observation.
func (s *fundsService) settle(ctx context.Context, tok token.Token, before decimal.Decimal, haveBefore bool, apply applyFunc) {
	after, ok := s.snapshot(ctx, tok)
	if !ok {
		return
	}
	t := s.trackerFor(s.account.Address(), tok.Symbol)

	var err error
	if haveBefore {
		_, err = apply(t, ctx, before, after)
	} else {
		_, err = t.Observe(ctx, after)
	}
	if err != nil {
		s.log.Error(ctx, "failed to update earnings baseline", "token", tok.Symbol, "error", err)
	}
}

func (s *fundsService) Activity(ctx context.Context) ([]ledger.Record, error) {
	account, err := s.owner()
	if err != nil {
		return nil, err
	}
	l, err := s.ledgerFor(ctx, account)
	if err != nil {
		return nil, err
	}
	return l.Recent(), nil
}

func (s *fundsService) History(ctx context.Context) ([]ledger.Record, error) {
	account, err := s.owner()
	if err != nil {
		return nil, err
	}
	l, err := s.ledgerFor(ctx, account)
	if err != nil {
		return nil, err
	}
	return l.All(ctx)
}

// ClearActivity wipes the ledger and every earnings baseline of the current
// account in one transaction.
func (s *fundsService) ClearActivity(ctx context.Context) error {
	account, err := s.owner()
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := ledger.New(repo, account, s.cfg, s.log).Clear(ctx); err != nil {
			return err
		}
		for _, tok := range s.registry.All() {
			if err := earnings.NewTracker(repo, account, tok.Symbol, s.log).Reset(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l, err := s.ledgerFor(ctx, account)
	if err != nil {
		return err
	}
	return l.Load(ctx)
}

// Earnings reads every vault position and updates the baselines from it.
func (s *fundsService) Earnings(ctx context.Context) ([]Position, error) {
	account, err := s.owner()
	if err != nil {
		return nil, err
	}
	c, err := s.account.Client()
	if err != nil {
		return nil, err
	}

	var out []Position
	for _, tok := range s.registry.All() {
		if !tok.HasVault() {
			continue
		}
		bal, err := vaultBalance(ctx, c, tok, account)
		if err != nil {
			return nil, err
		}
		est, err := s.trackerFor(account, tok.Symbol).Observe(ctx, bal)
		if err != nil {
			return nil, err
		}
		out = append(out, Position{Symbol: tok.Symbol, Estimate: est})
	}
	return out, nil
}

// Strategy reports the vault's current strategy and, when it is one of the
// token's named strategies, its name.
func (s *fundsService) Strategy(ctx context.Context, symbol string) (string, ethcommon.Address, error) {
	tok, v, err := s.vaultFor(symbol)
	if err != nil {
		return "", ethcommon.Address{}, err
	}
	addr, err := v.Strategy(ctx)
	if err != nil {
		return "", ethcommon.Address{}, err
	}
	for name, a := range tok.Strategies {
		if a == addr {
			return name, addr, nil
		}
	}
	return "", addr, nil
}

func (s *fundsService) SetStrategy(ctx context.Context, symbol, name string) (ethcommon.Hash, error) {
	tok, v, err := s.vaultFor(symbol)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	var (
		addr  ethcommon.Address
		found bool
	)
	for n, a := range tok.Strategies {
		if strings.EqualFold(n, name) {
			addr, found = a, true
			break
		}
	}
	if !found {
		return ethcommon.Hash{}, fmt.Errorf("%w: strategy %q for %s", ErrUnknownStrategy, name, tok.Symbol)
	}
	if !s.account.Unlocked() {
		return ethcommon.Hash{}, ErrLocked
	}
	if s.orch.InFlight() {
		return ethcommon.Hash{}, common.ErrOperationInFlight
	}

	tx, err := v.SetStrategy(ctx, addr)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	status, err := v.WaitForReceipt(context.WithoutCancel(ctx), tx)
	if err != nil {
		return tx.Hash, err
	}
	if status != chain.TxStatusConfirmed {
		return tx.Hash, fmt.Errorf("set strategy: transaction %s", status)
	}
	s.log.Info(ctx, "strategy changed", "token", tok.Symbol, "strategy", name)
	return tx.Hash, nil
}

func (s *fundsService) vaultFor(symbol string) (token.Token, *vault.Vault, error) {
	tok, err := s.registry.Lookup(symbol)
	if err != nil {
		return token.Token{}, nil, err
	}
	if !tok.HasVault() {
		return token.Token{}, nil, fmt.Errorf("%w: %s", common.ErrVaultNotDeployed, tok.Symbol)
	}
	c, err := s.account.Client()
	if err != nil {
		return token.Token{}, nil, err
	}
	return tok, vault.New(c, tok.Vault), nil
}
