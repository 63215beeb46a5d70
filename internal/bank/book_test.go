package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestPullPush(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	require.NoError(t, b.Credit(alice, 10))

	require.NoError(t, b.Pull(ctx, alice, 4))
	assert.Equal(t, uint64(6), b.Balance(alice))

	require.NoError(t, b.Push(ctx, bob, 4))
	assert.Equal(t, uint64(4), b.Balance(bob))
	assert.Equal(t, uint64(10), b.Total())
	assert.Equal(t, map[common.Address]uint64{alice: 6, bob: 4}, b.Balances())
}

func TestPullInsufficient(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Credit(alice, 3))

	err := b.Pull(context.Background(), alice, 4)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(3), b.Balance(alice))

	require.NoError(t, b.Pull(context.Background(), alice, 3))
	assert.Empty(t, b.Balances())
}

func TestCanceledContext(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Credit(alice, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Pull(ctx, alice, 1), context.Canceled)
	assert.ErrorIs(t, b.Push(ctx, bob, 1), context.Canceled)
	assert.Equal(t, uint64(3), b.Total())
}

func TestPushHookVetoesPayout(t *testing.T) {
	b := NewBook()
	rejected := errors.New("recipient rejected payout")

	var seen uint64
	b.OnPush(func(_ context.Context, to common.Address, amount uint64) error {
		seen = amount
		if to == bob {
			return rejected
		}
		return nil
	})

	require.NoError(t, b.Push(context.Background(), alice, 5))
	assert.Equal(t, uint64(5), seen)

	err := b.Push(context.Background(), bob, 8)
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, uint64(0), b.Balance(bob))
	assert.Equal(t, uint64(5), b.Total())
}

func TestPushHookCannotSpendPayoutBeforeAccepting(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	require.NoError(t, b.Credit(alice, 2))

	var spendErr error
	b.OnPush(func(ctx context.Context, to common.Address, amount uint64) error {
		spendErr = b.Pull(ctx, to, amount)
		return errors.New("changed my mind")
	})

	err := b.Push(ctx, alice, 8)
	assert.Error(t, err)
	assert.ErrorIs(t, spendErr, ErrInsufficientBalance)
	assert.Equal(t, uint64(2), b.Balance(alice))
	assert.Equal(t, uint64(2), b.Total())
}
