// Package erc20 adapts an ERC-20 token contract onto chain.Client.
package erc20

import (
	"context"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// ABI is the subset of the ERC-20 interface the wallet calls.
const ABI = `[
 {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var parsedABI = chain.MustParseABI(ABI)

type Token struct {
	client   chain.Client
	contract chain.Contract
}

func New(client chain.Client, address common.Address) *Token {
	return &Token{client: client, contract: chain.NewContract(address, parsedABI)}
}

func (t *Token) Address() common.Address {
	return t.contract.Address
}

// Allowance is always read from chain; callers must not cache it across a deposit.
func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return t.readUint(ctx, "allowance", owner, spender)
}

func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return t.readUint(ctx, "balanceOf", owner)
}

func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) (chain.Tx, error) {
	return t.client.Write(ctx, t.contract, "approve", spender, amount)
}

func (t *Token) Transfer(ctx context.Context, to common.Address, amount *big.Int) (chain.Tx, error) {
	return t.client.Write(ctx, t.contract, "transfer", to, amount)
}

func (t *Token) WaitForReceipt(ctx context.Context, tx chain.Tx) (chain.TxStatus, error) {
	return t.client.WaitForReceipt(ctx, tx)
}

func (t *Token) readUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	out, err := t.client.Read(ctx, t.contract, method, args...)
	if err != nil {
		return nil, err
	}
	return UintResult(method, out)
}

// UintResult converts the single uint256 output of a view call.
func UintResult(method string, out []any) (*big.Int, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return v, nil
}
