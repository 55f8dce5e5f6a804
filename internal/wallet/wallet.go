// Package wallet holds the connected account: its signing key, the chain it
// is on and the client used to talk to that chain.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrNotConnected = errors.New("wallet is not connected to a network")

// DialFunc opens an RPC connection.
type DialFunc func(ctx context.Context, url string) (chain.Backend, error)

// DialEthereum dials a JSON-RPC endpoint with go-ethereum's ethclient.
func DialEthereum(ctx context.Context, url string) (chain.Backend, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type Wallet struct {
	endpoints      map[int64]string
	dial           DialFunc
	receiptTimeout time.Duration
	log            logging.Logger

	mu      sync.RWMutex
	key     *ecdsa.PrivateKey
	address ethcommon.Address
	chainID int64
	backend chain.Backend
	client  *chain.EthereumClient
}

// New creates a disconnected, locked wallet. endpoints maps chain id to RPC URL.
func New(endpoints map[int64]string, dial DialFunc, receiptTimeout time.Duration, log logging.Logger) *Wallet {
	return &Wallet{
		endpoints:      endpoints,
		dial:           dial,
		receiptTimeout: receiptTimeout,
		log:            log.With("module", "wallet"),
	}
}

// Unlock installs the signing key; the account address follows from it.
func (w *Wallet) Unlock(key *ecdsa.PrivateKey) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.key = key
	w.address = crypto.PubkeyToAddress(key.PublicKey)
	w.rebuild()
}

// Lock drops the signing key. The address stays, so balances can still be read.
func (w *Wallet) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.key = nil
	w.rebuild()
}

// Watch sets a read-only account address without a key.
func (w *Wallet) Watch(address ethcommon.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.address = address
}

func (w *Wallet) Unlocked() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.key != nil
}

func (w *Wallet) Address() ethcommon.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address
}

// ChainID is the network the wallet is connected to, 0 if none.
func (w *Wallet) ChainID() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID
}

func (w *Wallet) Client() (chain.Client, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.client == nil {
		return nil, ErrNotConnected
	}
	return w.client, nil
}

// SwitchNetwork connects to the configured endpoint for chainID and checks
// that the node really serves that chain before replacing the current
// connection.
func (w *Wallet) SwitchNetwork(ctx context.Context, chainID int64) error {
	url, ok := w.endpoints[chainID]
	if !ok {
		return fmt.Errorf("%w: no RPC endpoint configured for chain %d", common.ErrNetworkMismatch, chainID)
	}

	backend, err := w.dial(ctx, url)
	if err != nil {
		return fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	got, err := backend.ChainID(ctx)
	if err != nil {
		closeBackend(backend)
		return fmt.Errorf("chain %d: %w", chainID, err)
	}
	if !got.IsInt64() || got.Int64() != chainID {
		closeBackend(backend)
		return fmt.Errorf("%w: endpoint for chain %d serves chain %s", common.ErrNetworkMismatch, chainID, got)
	}

	w.mu.Lock()
	old := w.backend
	w.backend = backend
	w.chainID = chainID
	w.rebuild()
	w.mu.Unlock()

	if old != nil {
		closeBackend(old)
	}
	w.log.Info(ctx, "switched network", "chain_id", chainID)
	return nil
}

// Close releases the RPC connection.
func (w *Wallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.backend != nil {
		closeBackend(w.backend)
	}
	w.backend, w.client, w.chainID = nil, nil, 0
}

// rebuild must be called with mu held.
func (w *Wallet) rebuild() {
	if w.backend == nil {
		w.client = nil
		return
	}
	w.client = chain.NewEthereumClient(w.backend, w.key, w.receiptTimeout, w.log)
}

func closeBackend(b chain.Backend) {
	if c, ok := b.(interface{ Close() }); ok {
		c.Close()
	}
}
