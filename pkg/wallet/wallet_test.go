package wallet

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFetcher struct {
	balances *Balances
	err      error
	calls    int
}

func (s *stubFetcher) GetBalances(_ context.Context, _ common.Address) (*Balances, error) {
	s.calls++
	return s.balances, s.err
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient("https://polygon-rpc.com", nil)
	assert.Error(t, err)

	c, err := NewClient("https://polygon-rpc.com", zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestBalancesUSDCFloat(t *testing.T) {
	b := &Balances{USDC: big.NewInt(1_234_560_000)}
	assert.InDelta(t, 1234.56, b.USDCFloat(), 1e-9)
}

func TestNewMonitorValidation(t *testing.T) {
	fetcher := &stubFetcher{}

	_, err := NewMonitor(nil)
	assert.Error(t, err)

	_, err = NewMonitor(&MonitorConfig{Fetcher: nil, PollInterval: time.Second, Logger: zap.NewNop()})
	assert.Error(t, err)

	_, err = NewMonitor(&MonitorConfig{Fetcher: fetcher, PollInterval: 0, Logger: zap.NewNop()})
	assert.Error(t, err)

	m, err := NewMonitor(&MonitorConfig{Fetcher: fetcher, PollInterval: time.Second, Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestMonitorPollFetchesBalances(t *testing.T) {
	fetcher := &stubFetcher{
		balances: &Balances{
			MATIC:         big.NewInt(2e18),
			USDC:          big.NewInt(500_000_000),
			USDCAllowance: big.NewInt(1_000_000_000),
		},
	}

	m, err := NewMonitor(&MonitorConfig{
		Fetcher:      fetcher,
		Address:      common.HexToAddress("0x1111111111111111111111111111111111111111"),
		PollInterval: time.Second,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	require.NoError(t, m.Poll(context.Background()))
	assert.Equal(t, 1, fetcher.calls)
}

func TestMonitorPollPropagatesError(t *testing.T) {
	fetcher := &stubFetcher{err: assert.AnError}

	m, err := NewMonitor(&MonitorConfig{
		Fetcher:      fetcher,
		Address:      common.Address{},
		PollInterval: time.Second,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	assert.Error(t, m.Poll(context.Background()))
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	fetcher := &stubFetcher{balances: &Balances{
		MATIC: big.NewInt(0), USDC: big.NewInt(0), USDCAllowance: big.NewInt(0),
	}}

	m, err := NewMonitor(&MonitorConfig{
		Fetcher:      fetcher,
		PollInterval: 10 * time.Millisecond,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	runErr := m.Run(ctx)
	assert.ErrorIs(t, runErr, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, fetcher.calls, 2)
}
