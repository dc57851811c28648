package balance

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	balance *big.Int
	err     error
	calls   int
}

func (f *fakeClient) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.balance, nil
}

func TestBalanceCachesWithinTTL(t *testing.T) {
	client := &fakeClient{balance: big.NewInt(1000)}
	m := NewMonitor(client, time.Hour, big.NewInt(100), big.NewInt(1))

	_, err := m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)
	_, err = m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls, "second read within TTL should not hit the RPC client")
}

func TestBalanceRefetchesAfterTTL(t *testing.T) {
	client := &fakeClient{balance: big.NewInt(1000)}
	m := NewMonitor(client, time.Millisecond, big.NewInt(100), big.NewInt(1))
	m.now = func() time.Time { return time.Now() }

	_, err := m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
}

func TestBalanceServesStaleOnRPCError(t *testing.T) {
	client := &fakeClient{balance: big.NewInt(1000)}
	m := NewMonitor(client, time.Millisecond, big.NewInt(100), big.NewInt(1))

	_, err := m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)

	client.err = errors.New("rpc down")
	time.Sleep(5 * time.Millisecond)
	val, err := m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), val)
}

func TestSufficientAppliesSafetyMultiplier(t *testing.T) {
	client := &fakeClient{balance: big.NewInt(150)}
	m := NewMonitor(client, time.Hour, big.NewInt(10), big.NewInt(1))

	ok, err := m.Sufficient(context.Background(), "0xabc", big.NewInt(100), 1.5)
	require.NoError(t, err)
	assert.True(t, ok, "150 == 100*1.5 exactly meets the threshold")

	ok, err = m.Sufficient(context.Background(), "0xabc", big.NewInt(101), 1.5)
	require.NoError(t, err)
	assert.False(t, ok, "150 < 101*1.5=151.5")
}

func TestIsLowAndIsEmpty(t *testing.T) {
	client := &fakeClient{balance: big.NewInt(5)}
	m := NewMonitor(client, time.Hour, big.NewInt(10), big.NewInt(1))
	_, err := m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.True(t, m.IsLow("0xabc"))
	assert.False(t, m.IsEmpty("0xabc"))

	client.balance = big.NewInt(0)
	m2 := NewMonitor(client, 0, big.NewInt(10), big.NewInt(1))
	_, err = m2.Balance(context.Background(), "0xdef")
	require.NoError(t, err)
	assert.True(t, m2.IsEmpty("0xdef"))
}

func TestDeductEstimatedFloorsAtZero(t *testing.T) {
	client := &fakeClient{balance: big.NewInt(50)}
	m := NewMonitor(client, time.Hour, big.NewInt(10), big.NewInt(1))
	_, err := m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)

	m.DeductEstimated("0xabc", big.NewInt(1000))
	val, err := m.Balance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), val)
}
