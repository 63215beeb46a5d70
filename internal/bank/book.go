// Package bank is an in-memory account book that moves value in and out of
// ledger pools.
package bank

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eigerco/statementbank/internal/safemath"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("balance overflow")
)

// PushHook lets a recipient accept or refuse a payout before it lands. It
// runs without the book lock held; a non-nil error vetoes the payout and
// nothing is credited.
type PushHook func(ctx context.Context, to common.Address, amount uint64) error

// Book keeps the balances of external accounts.
type Book struct {
	mu       sync.Mutex
	balances map[common.Address]uint64
	onPush   PushHook
}

func NewBook() *Book {
	return &Book{balances: make(map[common.Address]uint64)}
}

// OnPush installs a hook that models the recipient deciding on a payout.
func (b *Book) OnPush(h PushHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPush = h
}

// Credit mints amount into addr. Used to fund accounts.
func (b *Book) Credit(addr common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.add(addr, amount)
}

func (b *Book) Balance(addr common.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[addr]
}

// Total is the sum of every balance held by the book.
func (b *Book) Total() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total uint64
	for _, v := range b.balances {
		total += v
	}
	return total
}

// Balances returns a copy of every non-zero balance.
func (b *Book) Balances() map[common.Address]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.balances)
}

// Pull takes amount out of from's account.
func (b *Book) Pull(ctx context.Context, from common.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sub(from, amount)
}

// Push pays amount to to. The hook, if any, runs first and may call back into
// whoever triggered the payout; the recipient cannot spend the amount until
// the hook has accepted it.
func (b *Book) Push(ctx context.Context, to common.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	hook := b.onPush
	b.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, to, amount); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.add(to, amount)
}

func (b *Book) add(addr common.Address, amount uint64) error {
	v, ok := safemath.Add(b.balances[addr], amount)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOverflow, addr)
	}
	b.balances[addr] = v
	return nil
}

func (b *Book) sub(addr common.Address, amount uint64) error {
	v, ok := safemath.Sub(b.balances[addr], amount)
	if !ok {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, addr, b.balances[addr], amount)
	}
	if v == 0 {
		delete(b.balances, addr)
		return nil
	}
	b.balances[addr] = v
	return nil
}
