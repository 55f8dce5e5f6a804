package orchestrator

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/erc20"
	"github.com/dmitrijs2005/yieldvault/internal/token"
	"github.com/dmitrijs2005/yieldvault/internal/vault"
)

// Deposit moves amount of tok from the wallet into the token's vault,
// approving the vault first when the current allowance is short.
//
// Checks run in order: amount, network, wallet balance, cap, vault. None of
// them broadcasts anything. Once the first transaction is broadcast the rest
// of the sequence runs to completion even if ctx is cancelled.
func (o *Orchestrator) Deposit(ctx context.Context, tok token.Token, amount string) (Result, error) {
	if !o.begin() {
		return Result{}, common.ErrOperationInFlight
	}
	defer o.end()

	a, required, err := parse(amount, tok)
	if err != nil {
		return Result{}, o.fail(ctx, err)
	}
	client, err := o.connect(ctx)
	if err != nil {
		return Result{}, o.fail(ctx, err)
	}

	account := o.wallet.Address()
	erc := erc20.New(client, tok.Address)

	balance, err := erc.BalanceOf(ctx, account)
	if err != nil {
		return Result{}, o.fail(ctx, fmt.Errorf("read wallet balance: %w", err))
	}
	if required.Cmp(balance) > 0 {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: have %s %s", common.ErrInsufficientBalance,
			token.FromBaseUnits(balance, tok.Decimals), tok.Symbol))
	}
	if overCap(a, o.cfg.DepositCap) {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: limit is %s", common.ErrAmountTooLarge, o.cfg.DepositCap))
	}
	if !tok.HasVault() {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: %s", common.ErrVaultNotDeployed, tok.Symbol))
	}

	allowance, err := erc.Allowance(ctx, account, tok.Vault)
	if err != nil {
		return Result{}, o.fail(ctx, fmt.Errorf("read allowance: %w", err))
	}

	in := Intent{
		Step:          StepDeposit,
		Token:         tok,
		Amount:        a,
		Required:      required,
		NeedsApproval: allowance.Cmp(required) < 0,
		Recipient:     account,
	}
	o.hold(in)

	res := Result{Step: StepDeposit, Token: tok, Amount: a, BaseUnits: required}

	if in.NeedsApproval {
		o.setState(StateAwaitingApproval)
		hash, err := o.runStep(ctx, StepApproval, common.ErrApprovalFailed,
			func(ctx context.Context) (chain.Tx, error) { return erc.Approve(ctx, tok.Vault, in.Required) },
			erc.WaitForReceipt)
		if err != nil {
			return Result{}, o.fail(ctx, err)
		}
		res.Approved, res.ApprovalTx = true, hash

		ctx = context.WithoutCancel(ctx)
		if o.cfg.SettleDelay > 0 {
			o.sleep(o.cfg.SettleDelay)
		}
	}

	pending, _ := o.Pending()
	v := vault.New(client, pending.Token.Vault)

	o.setState(StateAwaitingDeposit)
	hash, err := o.runStep(ctx, StepDeposit, common.ErrDepositFailed,
		func(ctx context.Context) (chain.Tx, error) {
			return v.Deposit(ctx, pending.Required, pending.Recipient)
		},
		v.WaitForReceipt)
	if err != nil {
		return Result{}, o.fail(ctx, err)
	}
	res.TxHash = hash

	o.setState(StateConfirmed)
	o.log.Info(ctx, "deposit confirmed", "token", tok.Symbol, "amount", a.String(), "tx", hash.Hex())
	return res, nil
}
