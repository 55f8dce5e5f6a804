// Package chaintest provides an in-memory chain.Client for tests.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Call is one recorded Write.
type Call struct {
	Contract common.Address
	Method   string
	Args     []any
	Hash     common.Hash
}

// ReadFunc answers a view call.
type ReadFunc func(contract common.Address, args []any) (any, error)

// Client records writes in order and answers reads from per-method funcs.
// Every write is confirmed unless Status or ReceiptErr says otherwise.
type Client struct {
	mu sync.Mutex

	ID      *big.Int
	Account common.Address

	reads      map[string]ReadFunc
	writeErr   map[string]error
	status     map[string]chain.TxStatus
	receiptErr map[string]error

	// WriteGate, when set, blocks every Write until it is closed or receives.
	WriteGate chan struct{}

	writes  []Call
	readLog []string
	events  []string
	byHash  map[common.Hash]string
}

func New(chainID int64, account common.Address) *Client {
	return &Client{
		ID:         big.NewInt(chainID),
		Account:    account,
		reads:      map[string]ReadFunc{},
		writeErr:   map[string]error{},
		status:     map[string]chain.TxStatus{},
		receiptErr: map[string]error{},
		byHash:     map[common.Hash]string{},
	}
}

func (c *Client) OnRead(method string, fn ReadFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads[method] = fn
}

// OnReadValue answers method with a fixed value regardless of arguments.
func (c *Client) OnReadValue(method string, v any) {
	c.OnRead(method, func(common.Address, []any) (any, error) { return v, nil })
}

func (c *Client) FailWrite(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr[method] = err
}

func (c *Client) SetStatus(method string, s chain.TxStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[method] = s
}

func (c *Client) FailReceipt(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receiptErr[method] = err
}

// Writes returns the broadcast calls in submission order.
func (c *Client) Writes() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.writes...)
}

// ReadLog returns the methods read so far, in order.
func (c *Client) ReadLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.readLog...)
}

// Events returns "write <method>" / "wait <method>" entries in order.
func (c *Client) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *Client) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.ID), nil
}

func (c *Client) From() common.Address {
	return c.Account
}

func (c *Client) Read(_ context.Context, ct chain.Contract, method string, args ...any) ([]any, error) {
	c.mu.Lock()
	fn, ok := c.reads[method]
	c.readLog = append(c.readLog, method)
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("chaintest: no read handler for %s", method)
	}
	v, err := fn(ct.Address, args)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func (c *Client) Write(ctx context.Context, ct chain.Contract, method string, args ...any) (chain.Tx, error) {
	if c.WriteGate != nil {
		select {
		case <-c.WriteGate:
		case <-ctx.Done():
			return chain.Tx{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return chain.Tx{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writeErr[method]; err != nil {
		return chain.Tx{}, err
	}
	h := common.BigToHash(big.NewInt(int64(len(c.writes) + 1)))
	c.writes = append(c.writes, Call{Contract: ct.Address, Method: method, Args: args, Hash: h})
	c.events = append(c.events, "write "+method)
	c.byHash[h] = method
	return chain.Tx{Hash: h}, nil
}

func (c *Client) WaitForReceipt(_ context.Context, tx chain.Tx) (chain.TxStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	method, ok := c.byHash[tx.Hash]
	if !ok {
		return chain.TxStatusUnknown, fmt.Errorf("chaintest: unknown tx %s", tx.Hash.Hex())
	}
	c.events = append(c.events, "wait "+method)
	if err := c.receiptErr[method]; err != nil {
		return chain.TxStatusUnknown, err
	}
	if s, ok := c.status[method]; ok {
		return s, nil
	}
	return chain.TxStatusConfirmed, nil
}
