// Package chain is the contract-call surface the wallet uses: read a view
// function, write a state-changing one, wait for the resulting receipt.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxStatus is the terminal outcome of a mined transaction.
type TxStatus int

const (
	TxStatusUnknown TxStatus = iota
	TxStatusConfirmed
	TxStatusFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusConfirmed:
		return "confirmed"
	case TxStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Tx is a handle to a broadcast transaction.
type Tx struct {
	Hash common.Hash
	raw  *types.Transaction
}

// NewTx wraps a signed transaction.
func NewTx(tx *types.Transaction) Tx {
	return Tx{Hash: tx.Hash(), raw: tx}
}

// Contract binds an address to the ABI used to encode calls against it.
type Contract struct {
	Address common.Address
	ABI     abi.ABI
}

// NewContract pairs an address with a parsed ABI.
func NewContract(address common.Address, parsed abi.ABI) Contract {
	return Contract{Address: address, ABI: parsed}
}

// MustParseABI panics on malformed ABI JSON; intended for package-level vars.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("chain: parse abi: %v", err))
	}
	return parsed
}

// Client is implemented by EthereumClient and by test fakes.
type Client interface {
	// ChainID returns the chain the client is connected to.
	ChainID(ctx context.Context) (*big.Int, error)
	// From is the account transactions are signed by.
	From() common.Address
	Read(ctx context.Context, c Contract, method string, args ...any) ([]any, error)
	Write(ctx context.Context, c Contract, method string, args ...any) (Tx, error)
	WaitForReceipt(ctx context.Context, tx Tx) (TxStatus, error)
}
