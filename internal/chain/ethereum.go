package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Backend is what EthereumClient needs from an RPC connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// EthereumClient signs with an optional private key. Without a key it can
// only Read.
type EthereumClient struct {
	backend        Backend
	key            *ecdsa.PrivateKey
	from           ethcommon.Address
	receiptTimeout time.Duration
	log            logging.Logger

	mu      sync.Mutex
	chainID *big.Int
}

// NewEthereumClient wraps backend. key may be nil for read-only use.
func NewEthereumClient(backend Backend, key *ecdsa.PrivateKey, receiptTimeout time.Duration, log logging.Logger) *EthereumClient {
	c := &EthereumClient{
		backend:        backend,
		key:            key,
		receiptTimeout: receiptTimeout,
		log:            log.With("module", "chain"),
	}
	if key != nil {
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c
}

func (c *EthereumClient) From() ethcommon.Address {
	return c.from
}

// ChainID is cached after the first successful call.
func (c *EthereumClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chainID == nil {
		id, err := c.backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		c.chainID = id
	}
	return new(big.Int).Set(c.chainID), nil
}

func (c *EthereumClient) bound(ct Contract) *bind.BoundContract {
	return bind.NewBoundContract(ct.Address, ct.ABI, c.backend, c.backend, c.backend)
}

func (c *EthereumClient) Read(ctx context.Context, ct Contract, method string, args ...any) ([]any, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx, From: c.from}
	if err := c.bound(ct).Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

func (c *EthereumClient) Write(ctx context.Context, ct Contract, method string, args ...any) (Tx, error) {
	if c.key == nil {
		return Tx{}, fmt.Errorf("send %s: wallet is locked: %w", method, common.ErrorUnauthorized)
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return Tx{}, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
	if err != nil {
		return Tx{}, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := c.bound(ct).Transact(opts, method, args...)
	if err != nil {
		return Tx{}, fmt.Errorf("send %s: %w", method, err)
	}
	c.log.Info(ctx, "transaction sent", "method", method, "to", ct.Address.Hex(), "hash", tx.Hash().Hex())
	return NewTx(tx), nil
}

// WaitForReceipt blocks until tx is mined or the receipt timeout expires.
func (c *EthereumClient) WaitForReceipt(ctx context.Context, tx Tx) (TxStatus, error) {
	if tx.raw == nil {
		return TxStatusUnknown, errors.New("wait for receipt: transaction handle has no payload")
	}
	if c.receiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.receiptTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx.raw)
	if err != nil {
		return TxStatusUnknown, fmt.Errorf("wait for %s: %w", tx.Hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		c.log.Warn(ctx, "transaction reverted", "hash", tx.Hash.Hex(), "block", receipt.BlockNumber)
		return TxStatusFailed, nil
	}
	c.log.Info(ctx, "transaction mined", "hash", tx.Hash.Hex(), "block", receipt.BlockNumber)
	return TxStatusConfirmed, nil
}
