package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFunds struct {
	FundsService

	mu        sync.Mutex
	busy      bool
	err       error
	positions []Position
	calls     int
}

func (s *stubFunds) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *stubFunds) Earnings(context.Context) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.positions, s.err
}

func TestNewBalanceWatcher_BadSpec(t *testing.T) {
	_, err := NewBalanceWatcher("every now and then", &stubFunds{}, logging.Nop{}, nil)
	require.Error(t, err)
}

func TestBalanceWatcher_Refresh(t *testing.T) {
	funds := &stubFunds{positions: []Position{{Symbol: "USDC"}}}
	var got []Position
	w, err := NewBalanceWatcher("@every 1h", funds, logging.Nop{}, func(p []Position) { got = p })
	require.NoError(t, err)

	w.Refresh()
	assert.Equal(t, 1, funds.calls)
	assert.Equal(t, funds.positions, got)
}

func TestBalanceWatcher_SkipsWhileBusy(t *testing.T) {
	funds := &stubFunds{busy: true}
	called := false
	w, err := NewBalanceWatcher("@every 1h", funds, logging.Nop{}, func([]Position) { called = true })
	require.NoError(t, err)

	w.Refresh()
	assert.Zero(t, funds.calls)
	assert.False(t, called)
}

func TestBalanceWatcher_ErrorDoesNotNotify(t *testing.T) {
	funds := &stubFunds{err: errors.New("rpc down")}
	called := false
	w, err := NewBalanceWatcher("@every 1h", funds, logging.Nop{}, func([]Position) { called = true })
	require.NoError(t, err)

	w.Refresh()
	assert.Equal(t, 1, funds.calls)
	assert.False(t, called)
}

func TestBalanceWatcher_StartStop(t *testing.T) {
	w, err := NewBalanceWatcher("@every 1h", &stubFunds{}, logging.Nop{}, nil)
	require.NoError(t, err)
	w.Start()
	w.Stop()
}
