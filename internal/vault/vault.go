// Package vault adapts a per-token yield vault contract onto chain.Client.
package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/erc20"
	"github.com/ethereum/go-ethereum/common"
)

const ABI = `[
 {"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"assets","type":"uint256"},{"name":"receiver","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"assets","type":"uint256"},{"name":"receiver","type":"address"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"getBalance","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"currentStrategy","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"setStrategy","stateMutability":"nonpayable","inputs":[{"name":"strategy","type":"address"}],"outputs":[]}
]`

var parsedABI = chain.MustParseABI(ABI)

type Vault struct {
	client   chain.Client
	contract chain.Contract
}

func New(client chain.Client, address common.Address) *Vault {
	return &Vault{client: client, contract: chain.NewContract(address, parsedABI)}
}

func (v *Vault) Address() common.Address {
	return v.contract.Address
}

func (v *Vault) Deposit(ctx context.Context, amount *big.Int, receiver common.Address) (chain.Tx, error) {
	return v.client.Write(ctx, v.contract, "deposit", amount, receiver)
}

func (v *Vault) Withdraw(ctx context.Context, amount *big.Int, receiver, owner common.Address) (chain.Tx, error) {
	return v.client.Write(ctx, v.contract, "withdraw", amount, receiver, owner)
}

// BalanceOf is the account's position in the vault, in token base units.
func (v *Vault) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := v.client.Read(ctx, v.contract, "getBalance", account)
	if err != nil {
		return nil, err
	}
	return erc20.UintResult("getBalance", out)
}

func (v *Vault) Strategy(ctx context.Context) (common.Address, error) {
	out, err := v.client.Read(ctx, v.contract, "currentStrategy")
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("currentStrategy: expected 1 output, got %d", len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("currentStrategy: unexpected output type %T", out[0])
	}
	return addr, nil
}

func (v *Vault) SetStrategy(ctx context.Context, strategy common.Address) (chain.Tx, error) {
	return v.client.Write(ctx, v.contract, "setStrategy", strategy)
}

func (v *Vault) WaitForReceipt(ctx context.Context, tx chain.Tx) (chain.TxStatus, error) {
	return v.client.WaitForReceipt(ctx, tx)
}
