package earnings

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/dmitrijs2005/yieldvault/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = ethcommon.HexToAddress("0x00000000000000000000000000000000000000a1")

type memStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	version map[string]int64
}

func newMemStore() *memStore {
	return &memStore{values: map[string][]byte{}, version: map[string]int64{}}
}

func (m *memStore) GetVersioned(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], m.version[key], nil
}

func (m *memStore) CompareAndSet(_ context.Context, key string, value []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.version[key] != expected {
		return 0, common.ErrVersionConflict
	}
	m.values[key] = value
	m.version[key]++
	return m.version[key], nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.version, key)
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute_NeverNegative(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		balance := decimal.NewFromFloat(r.Float64() * 1000).Round(6)
		baseline := decimal.NewFromFloat(r.Float64() * 1000).Round(6)
		e := Compute(balance, baseline)
		assert.False(t, e.Earnings.IsNegative(), "balance %s baseline %s", balance, baseline)
		if balance.GreaterThan(baseline) {
			assert.True(t, e.Earnings.Equal(balance.Sub(baseline)))
		}
	}
}

func TestObserve_FirstNonZeroSetsBaseline(t *testing.T) {
	tr := NewTracker(newMemStore(), alice, "usdc", logging.Nop{})
	ctx := context.Background()

	e, err := tr.Observe(ctx, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, e.Earnings.IsZero())
	_, ok, err := tr.Baseline(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "zero balance does not set a baseline")

	e, err = tr.Observe(ctx, d("250"))
	require.NoError(t, err)
	assert.True(t, e.Principal.Equal(d("250")))
	assert.True(t, e.Earnings.IsZero())

	e, err = tr.Observe(ctx, d("262.5"))
	require.NoError(t, err)
	assert.True(t, e.Earnings.Equal(d("12.5")))

	b, ok, err := tr.Baseline(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b.Equal(d("250")), "later observations leave the baseline alone")
}

func TestApplyDeposit_UsesObservedDelta(t *testing.T) {
	tr := NewTracker(newMemStore(), alice, "USDC", logging.Nop{})
	ctx := context.Background()

	_, err := tr.Observe(ctx, d("1000"))
	require.NoError(t, err)

	// requested 100, vault credited 99.7
	e, err := tr.ApplyDeposit(ctx, d("1010"), d("1109.7"))
	require.NoError(t, err)

	b, _, err := tr.Baseline(ctx)
	require.NoError(t, err)
	assert.True(t, b.Equal(d("1099.7")), "baseline %s", b)
	assert.True(t, e.Earnings.Equal(d("10")))
}

func TestApplyDeposit_NoBaselineYet(t *testing.T) {
	tr := NewTracker(newMemStore(), alice, "USDC", logging.Nop{})
	ctx := context.Background()

	e, err := tr.ApplyDeposit(ctx, decimal.Zero, d("100"))
	require.NoError(t, err)
	assert.True(t, e.Principal.Equal(d("100")))
	assert.True(t, e.Earnings.IsZero())
}

func TestApplyDeposit_NoIncreaseKeepsBaseline(t *testing.T) {
	tr := NewTracker(newMemStore(), alice, "USDC", logging.Nop{})
	ctx := context.Background()
	_, err := tr.Observe(ctx, d("100"))
	require.NoError(t, err)

	_, err = tr.ApplyDeposit(ctx, d("100"), d("100"))
	require.NoError(t, err)
	b, _, _ := tr.Baseline(ctx)
	assert.True(t, b.Equal(d("100")))
}

func TestApplyWithdraw_ClampsAtZero(t *testing.T) {
	tr := NewTracker(newMemStore(), alice, "USDC", logging.Nop{})
	ctx := context.Background()
	_, err := tr.Observe(ctx, d("100"))
	require.NoError(t, err)

	e, err := tr.ApplyWithdraw(ctx, d("120"), d("80"))
	require.NoError(t, err)
	b, _, _ := tr.Baseline(ctx)
	assert.True(t, b.Equal(d("60")))
	assert.True(t, e.Earnings.Equal(d("20")))

	e, err = tr.ApplyWithdraw(ctx, d("80"), d("0"))
	require.NoError(t, err)
	b, _, _ = tr.Baseline(ctx)
	assert.True(t, b.IsZero())
	assert.False(t, e.Earnings.IsNegative())
}

func TestEarnings_NeverNegativeOverSequence(t *testing.T) {
	tr := NewTracker(newMemStore(), alice, "USDC", logging.Nop{})
	ctx := context.Background()
	r := rand.New(rand.NewSource(7))

	balance := decimal.Zero
	for i := 0; i < 200; i++ {
		next := decimal.NewFromInt(int64(r.Intn(5000)))
		var (
			e   Estimate
			err error
		)
		switch r.Intn(3) {
		case 0:
			e, err = tr.Observe(ctx, next)
		case 1:
			e, err = tr.ApplyDeposit(ctx, balance, next)
		default:
			e, err = tr.ApplyWithdraw(ctx, balance, next)
		}
		require.NoError(t, err)
		assert.False(t, e.Earnings.IsNegative())
		balance = next
	}
}

func TestReset(t *testing.T) {
	s := newMemStore()
	tr := NewTracker(s, alice, "USDC", logging.Nop{})
	ctx := context.Background()
	_, err := tr.Observe(ctx, d("5"))
	require.NoError(t, err)

	require.NoError(t, tr.Reset(ctx))
	_, ok, err := tr.Baseline(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBaseline_Corrupt(t *testing.T) {
	s := newMemStore()
	_, err := s.CompareAndSet(context.Background(), Key(alice, "USDC"), []byte("abc"), 0)
	require.NoError(t, err)

	tr := NewTracker(s, alice, "USDC", logging.Nop{})
	_, _, err = tr.Baseline(context.Background())
	require.ErrorContains(t, err, "decode baseline")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "baseline:0x00000000000000000000000000000000000000a1:USDC", Key(alice, "usdc"))
}
