package services

import (
	"context"
	"crypto/ecdsa"
	"database/sql"
	"math/big"
	"sync"
	"testing"

	"github.com/dmitrijs2005/yieldvault/internal/chain"
	"github.com/dmitrijs2005/yieldvault/internal/chain/chaintest"
	"github.com/dmitrijs2005/yieldvault/internal/client/client"
	"github.com/dmitrijs2005/yieldvault/internal/token"
	"github.com/dmitrijs2005/yieldvault/internal/wallet"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const (
	testChainID = 11155111
	testKeyHex  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

var (
	usdcAddr  = ethcommon.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	vaultAddr = ethcommon.HexToAddress("0x00000000000000000000000000000000000000b2")
	aaveAddr  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000c1")
	morphAddr = ethcommon.HexToAddress("0x00000000000000000000000000000000000000c2")
	daiAddr   = ethcommon.HexToAddress("0x00000000000000000000000000000000000000d1")

	usdc = token.Token{
		Symbol:     "USDC",
		Address:    usdcAddr,
		Decimals:   6,
		Vault:      vaultAddr,
		Strategies: map[string]ethcommon.Address{"aave": aaveAddr, "morpho": morphAddr},
	}
	dai = token.Token{Symbol: "DAI", Address: daiAddr, Decimals: 18}
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, client.RunMigrations(context.Background(), db))
	return db
}

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	k, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return k
}

// fakeAccount is a wallet connected to a chaintest client.
type fakeAccount struct {
	mu      sync.Mutex
	client  chain.Client
	key     *ecdsa.PrivateKey
	address ethcommon.Address
	chainID int64

	switchErr error
	switched  []int64
}

func (a *fakeAccount) Address() ethcommon.Address {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.address
}

func (a *fakeAccount) Client() (chain.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, wallet.ErrNotConnected
	}
	return a.client, nil
}

func (a *fakeAccount) Unlock(key *ecdsa.PrivateKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.key = key
	a.address = crypto.PubkeyToAddress(key.PublicKey)
}

func (a *fakeAccount) Lock() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.key = nil
}

func (a *fakeAccount) Watch(address ethcommon.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.address = address
}

func (a *fakeAccount) Unlocked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.key != nil
}

func (a *fakeAccount) ChainID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chainID
}

func (a *fakeAccount) SwitchNetwork(_ context.Context, chainID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.switched = append(a.switched, chainID)
	if a.switchErr != nil {
		return a.switchErr
	}
	a.chainID = chainID
	return nil
}

// chainState is what the fake chain reports for the test account.
type chainState struct {
	mu        sync.Mutex
	wallet    *big.Int
	allowance *big.Int
	position  *big.Int
	liquidity *big.Int
	strategy  ethcommon.Address
}

func (s *chainState) setPosition(v *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = v
}

func units(s string, decimals uint8) *big.Int {
	return token.ToBaseUnits(decimal.RequireFromString(s), decimals)
}

func newChain(account ethcommon.Address, st *chainState) *chaintest.Client {
	c := chaintest.New(testChainID, account)
	c.OnRead("balanceOf", func(contract ethcommon.Address, args []any) (any, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		if args[0].(ethcommon.Address) == vaultAddr {
			return st.liquidity, nil
		}
		return st.wallet, nil
	})
	c.OnRead("allowance", func(ethcommon.Address, []any) (any, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.allowance, nil
	})
	// The vault position follows the confirmed deposits and withdrawals.
	c.OnRead("getBalance", func(ethcommon.Address, []any) (any, error) {
		st.mu.Lock()
		pos := new(big.Int).Set(st.position)
		st.mu.Unlock()
		for _, w := range c.Writes() {
			switch w.Method {
			case "deposit":
				pos.Add(pos, w.Args[0].(*big.Int))
			case "withdraw":
				pos.Sub(pos, w.Args[0].(*big.Int))
			}
		}
		return pos, nil
	})
	c.OnRead("currentStrategy", func(ethcommon.Address, []any) (any, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		return st.strategy, nil
	})
	return c
}
