package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testABI = `[
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"a","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"v","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// fakeBackend answers just enough of the RPC surface for BoundContract's
// legacy-transaction path.
type fakeBackend struct {
	bind.ContractBackend

	mu          sync.Mutex
	chainID     *big.Int
	chainIDHits int
	callOutput  []byte
	callErr     error
	lastCall    ethereum.CallMsg
	sent        []*types.Transaction
	sendErr     error
	status      uint64
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainIDHits++
	return f.chainID, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.lastCall = msg
	return f.callOutput, f.callErr
}

func (f *fakeBackend) CodeAt(context.Context, ethcommon.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeBackend) PendingCodeAt(context.Context, ethcommon.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 60_000, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, ethcommon.Address) (uint64, error) {
	return uint64(len(f.sent)), nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, h ethcommon.Hash) (*types.Receipt, error) {
	return &types.Receipt{TxHash: h, Status: f.status, BlockNumber: big.NewInt(7)}, nil
}

func newTestClient(t *testing.T, withKey bool) (*EthereumClient, *fakeBackend) {
	t.Helper()
	be := &fakeBackend{chainID: big.NewInt(11155111), status: types.ReceiptStatusSuccessful}
	var c *EthereumClient
	if withKey {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		c = NewEthereumClient(be, key, time.Second, logging.Nop{})
	} else {
		c = NewEthereumClient(be, nil, time.Second, logging.Nop{})
	}
	return c, be
}

func TestEthereumClient_Read(t *testing.T) {
	c, be := newTestClient(t, false)
	parsed := MustParseABI(testABI)
	out, err := parsed.Methods["balanceOf"].Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)
	be.callOutput = out

	token := NewContract(ethcommon.HexToAddress("0x01"), parsed)
	holder := ethcommon.HexToAddress("0x02")

	res, err := c.Read(context.Background(), token, "balanceOf", holder)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 0, res[0].(*big.Int).Cmp(big.NewInt(42)))
	assert.Equal(t, token.Address, *be.lastCall.To)

	be.callErr = errors.New("execution reverted")
	_, err = c.Read(context.Background(), token, "balanceOf", holder)
	require.ErrorContains(t, err, "execution reverted")
}

func TestEthereumClient_Write_SignsWithChainID(t *testing.T) {
	c, be := newTestClient(t, true)
	token := NewContract(ethcommon.HexToAddress("0x01"), MustParseABI(testABI))

	tx, err := c.Write(context.Background(), token, "transfer", ethcommon.HexToAddress("0x03"), big.NewInt(5))
	require.NoError(t, err)
	require.Len(t, be.sent, 1)
	assert.Equal(t, be.sent[0].Hash(), tx.Hash)

	sender, err := types.Sender(types.LatestSignerForChainID(be.chainID), be.sent[0])
	require.NoError(t, err)
	assert.Equal(t, c.From(), sender)
	assert.Equal(t, 0, be.sent[0].ChainId().Cmp(be.chainID))

	_, err = c.Write(context.Background(), token, "transfer", ethcommon.HexToAddress("0x03"), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, 1, be.chainIDHits, "chain id is cached")
}

func TestEthereumClient_Write_Locked(t *testing.T) {
	c, be := newTestClient(t, false)
	token := NewContract(ethcommon.HexToAddress("0x01"), MustParseABI(testABI))

	_, err := c.Write(context.Background(), token, "transfer", ethcommon.HexToAddress("0x03"), big.NewInt(5))
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, be.sent)
}

func TestEthereumClient_Write_SendError(t *testing.T) {
	c, be := newTestClient(t, true)
	be.sendErr = errors.New("user rejected")
	token := NewContract(ethcommon.HexToAddress("0x01"), MustParseABI(testABI))

	_, err := c.Write(context.Background(), token, "transfer", ethcommon.HexToAddress("0x03"), big.NewInt(5))
	require.ErrorContains(t, err, "user rejected")
}

func TestEthereumClient_WaitForReceipt(t *testing.T) {
	c, be := newTestClient(t, true)
	token := NewContract(ethcommon.HexToAddress("0x01"), MustParseABI(testABI))

	tx, err := c.Write(context.Background(), token, "transfer", ethcommon.HexToAddress("0x03"), big.NewInt(5))
	require.NoError(t, err)

	status, err := c.WaitForReceipt(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, TxStatusConfirmed, status)

	be.status = types.ReceiptStatusFailed
	status, err = c.WaitForReceipt(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, TxStatusFailed, status)

	_, err = c.WaitForReceipt(context.Background(), Tx{Hash: tx.Hash})
	require.Error(t, err)
}

func TestTxStatus_String(t *testing.T) {
	assert.Equal(t, "confirmed", TxStatusConfirmed.String())
	assert.Equal(t, "failed", TxStatusFailed.String())
	assert.Equal(t, "unknown", TxStatusUnknown.String())
}

func TestMustParseABI_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseABI("not json") })
}
