// Package orchestrator sequences the wallet's fund movements against the
// chain: validation, the approve-then-deposit pair, withdrawals and plain
// token transfers.
//
// A run moves through
//
//	idle → validating → awaiting-approval → awaiting-deposit → confirmed | failed
//
// (withdraw and send use their own awaiting state in place of the last
// two). Only one run may be in flight per Orchestrator.
package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/dmitrijs2005/yieldvault/internal/token"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateAwaitingApproval State = "awaiting-approval"
	StateAwaitingDeposit  State = "awaiting-deposit"
	StateAwaitingWithdraw State = "awaiting-withdraw"
	StateAwaitingSend     State = "awaiting-send"
	StateConfirmed        State = "confirmed"
	StateFailed           State = "failed"
)

type Step string

const (
	StepApproval Step = "approval"
	StepDeposit  Step = "deposit"
	StepWithdraw Step = "withdraw"
	StepSend     Step = "send"
)

type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusConfirming StepStatus = "confirming"
	StatusConfirmed  StepStatus = "confirmed"
	StatusFailed     StepStatus = "failed"
)

// Event reports one status transition of one transaction step.
type Event struct {
	Step   Step
	Status StepStatus
	TxHash ethcommon.Hash
	Err    error
}

// Listener receives events synchronously, in order.
type Listener func(Event)

// Wallet is the connected account and its current chain connection.
type Wallet interface {
	Address() ethcommon.Address
	Client() (chain.Client, error)
}

// Intent is the held state of an in-flight operation. It is never rebuilt
// from caller input once validation has passed.
type Intent struct {
	Step          Step
	Token         token.Token
	Amount        decimal.Decimal
	Required      *big.Int
	NeedsApproval bool
	Recipient     ethcommon.Address
}

// Result describes a confirmed operation.
type Result struct {
	Step       Step
	Token      token.Token
	Amount     decimal.Decimal
	BaseUnits  *big.Int
	Approved   bool
	ApprovalTx ethcommon.Hash
	TxHash     ethcommon.Hash
}

type Config struct {
	// ChainID is the expected network. Zero disables the check.
	ChainID     int64
	DepositCap  decimal.Decimal
	WithdrawCap decimal.Decimal
	SettleDelay time.Duration
}

type Orchestrator struct {
	cfg    Config
	wallet Wallet
	log    logging.Logger

	busy atomic.Bool

	mu       sync.Mutex
	state    State
	intent   *Intent
	listener Listener

	sleep func(time.Duration)
}

func New(cfg Config, wallet Wallet, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		wallet: wallet,
		log:    log.With("module", "orchestrator"),
		state:  StateIdle,
		sleep:  time.Sleep,
	}
}

func (o *Orchestrator) SetListener(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listener = l
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pending returns the in-flight intent, if any.
func (o *Orchestrator) Pending() (Intent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.intent == nil {
		return Intent{}, false
	}
	return *o.intent, true
}

// InFlight reports whether an operation is currently running.
func (o *Orchestrator) InFlight() bool {
	return o.busy.Load()
}

func (o *Orchestrator) begin() bool {
	if !o.busy.CompareAndSwap(false, true) {
		return false
	}
	o.setState(StateValidating)
	return true
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.intent = nil
	o.mu.Unlock()
	o.busy.Store(false)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) hold(in Intent) {
	o.mu.Lock()
	o.intent = &in
	o.mu.Unlock()
}

func (o *Orchestrator) emit(e Event) {
	o.mu.Lock()
	l := o.listener
	o.mu.Unlock()
	if l != nil {
		l(e)
	}
}

// fail moves to the terminal failed state and passes err through.
func (o *Orchestrator) fail(ctx context.Context, err error) error {
	o.setState(StateFailed)
	if common.IsValidation(err) {
		o.log.Debug(ctx, "rejected", "error", err)
	} else {
		o.log.Warn(ctx, "operation failed", "error", err)
	}
	return err
}

func (o *Orchestrator) connect(ctx context.Context) (chain.Client, error) {
	client, err := o.wallet.Client()
	if err != nil {
		return nil, err
	}
	if o.cfg.ChainID == 0 {
		return client, nil
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if id.Cmp(big.NewInt(o.cfg.ChainID)) != 0 {
		return nil, fmt.Errorf("%w: connected to chain %s, expected %d", common.ErrNetworkMismatch, id, o.cfg.ChainID)
	}
	return client, nil
}

// parse converts a user amount to base units. An amount that rounds to zero
// at the token's precision is rejected as invalid.
func parse(amount string, tok token.Token) (decimal.Decimal, *big.Int, error) {
	a, err := token.ParseAmount(amount)
	if err != nil {
		return decimal.Zero, nil, err
	}
	required := token.ToBaseUnits(a, tok.Decimals)
	if required.Sign() <= 0 {
		return decimal.Zero, nil, fmt.Errorf("%w: below %s precision", common.ErrInvalidAmount, tok.Symbol)
	}
	return a, required, nil
}

func overCap(a, limit decimal.Decimal) bool {
	return limit.IsPositive() && a.GreaterThan(limit)
}

type sendFunc func(ctx context.Context) (chain.Tx, error)
type waitFunc func(ctx context.Context, tx chain.Tx) (chain.TxStatus, error)

// runStep broadcasts one transaction and waits for its receipt, emitting
// pending, confirming and a terminal status. The receipt wait ignores
// caller cancellation: a broadcast transaction cannot be recalled.
func (o *Orchestrator) runStep(ctx context.Context, step Step, kind error, send sendFunc, wait waitFunc) (ethcommon.Hash, error) {
	o.emit(Event{Step: step, Status: StatusPending})

	tx, err := send(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", kind, err)
		o.emit(Event{Step: step, Status: StatusFailed, Err: err})
		return ethcommon.Hash{}, err
	}
	o.emit(Event{Step: step, Status: StatusConfirming, TxHash: tx.Hash})
	o.log.Info(ctx, "transaction broadcast", "step", string(step), "tx", tx.Hash.Hex())

	status, err := wait(context.WithoutCancel(ctx), tx)
	if err == nil && status != chain.TxStatusConfirmed {
		err = fmt.Errorf("transaction %s %s", tx.Hash.Hex(), status)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", kind, err)
		o.emit(Event{Step: step, Status: StatusFailed, TxHash: tx.Hash, Err: err})
		return tx.Hash, err
	}

	o.emit(Event{Step: step, Status: StatusConfirmed, TxHash: tx.Hash})
	return tx.Hash, nil
}
