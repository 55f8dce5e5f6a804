package orchestrator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/erc20"
	"github.com/dmitrijs2005/yieldvault/internal/token"
	"github.com/dmitrijs2005/yieldvault/internal/vault"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Withdraw pulls amount of tok out of its vault back to the wallet. The
// amount may not exceed the smaller of the account's vault position and the
// tokens the vault actually holds.
func (o *Orchestrator) Withdraw(ctx context.Context, tok token.Token, amount string) (Result, error) {
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
	if !tok.HasVault() {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: %s", common.ErrVaultNotDeployed, tok.Symbol))
	}

	account := o.wallet.Address()
	v := vault.New(client, tok.Vault)

	position, err := v.BalanceOf(ctx, account)
	if err != nil {
		return Result{}, o.fail(ctx, fmt.Errorf("read vault balance: %w", err))
	}
	liquidity, err := erc20.New(client, tok.Address).BalanceOf(ctx, tok.Vault)
	if err != nil {
		return Result{}, o.fail(ctx, fmt.Errorf("read vault liquidity: %w", err))
	}
	available := position
	if liquidity.Cmp(available) < 0 {
		available = liquidity
	}
	if required.Cmp(available) > 0 {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: %s %s available to withdraw", common.ErrInsufficientBalance,
			token.FromBaseUnits(available, tok.Decimals), tok.Symbol))
	}
	if overCap(a, o.cfg.WithdrawCap) {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: limit is %s", common.ErrAmountTooLarge, o.cfg.WithdrawCap))
	}

	in := Intent{Step: StepWithdraw, Token: tok, Amount: a, Required: required, Recipient: account}
	o.hold(in)

	o.setState(StateAwaitingWithdraw)
	hash, err := o.runStep(ctx, StepWithdraw, common.ErrWithdrawFailed,
		func(ctx context.Context) (chain.Tx, error) {
			return v.Withdraw(ctx, in.Required, in.Recipient, account)
		},
		v.WaitForReceipt)
	if err != nil {
		return Result{}, o.fail(ctx, err)
	}

	o.setState(StateConfirmed)
	o.log.Info(ctx, "withdraw confirmed", "token", tok.Symbol, "amount", a.String(), "tx", hash.Hex())
	return Result{Step: StepWithdraw, Token: tok, Amount: a, BaseUnits: required, TxHash: hash}, nil
}

// Send transfers amount of tok from the wallet to another address.
func (o *Orchestrator) Send(ctx context.Context, tok token.Token, to string, amount string) (Result, error) {
	if !o.begin() {
		return Result{}, common.ErrOperationInFlight
	}
	defer o.end()

	a, required, err := parse(amount, tok)
	if err != nil {
		return Result{}, o.fail(ctx, err)
	}
	if !ethcommon.IsHexAddress(to) {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: %q", common.ErrInvalidAddress, to))
	}
	recipient := ethcommon.HexToAddress(to)
	if recipient == (ethcommon.Address{}) {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: zero address", common.ErrInvalidAddress))
	}

	client, err := o.connect(ctx)
	if err != nil {
		return Result{}, o.fail(ctx, err)
	}

	erc := erc20.New(client, tok.Address)
	balance, err := erc.BalanceOf(ctx, o.wallet.Address())
	if err != nil {
		return Result{}, o.fail(ctx, fmt.Errorf("read wallet balance: %w", err))
	}
	if required.Cmp(balance) > 0 {
		return Result{}, o.fail(ctx, fmt.Errorf("%w: have %s %s", common.ErrInsufficientBalance,
			token.FromBaseUnits(balance, tok.Decimals), tok.Symbol))
	}

	in := Intent{Step: StepSend, Token: tok, Amount: a, Required: new(big.Int).Set(required), Recipient: recipient}
	o.hold(in)

	o.setState(StateAwaitingSend)
	hash, err := o.runStep(ctx, StepSend, common.ErrSendFailed,
		func(ctx context.Context) (chain.Tx, error) { return erc.Transfer(ctx, in.Recipient, in.Required) },
		erc.WaitForReceipt)
	if err != nil {
		return Result{}, o.fail(ctx, err)
	}

	o.setState(StateConfirmed)
	o.log.Info(ctx, "send confirmed", "token", tok.Symbol, "amount", a.String(), "to", recipient.Hex(), "tx", hash.Hex())
	return Result{Step: StepSend, Token: tok, Amount: a, BaseUnits: required, TxHash: hash}, nil
}
