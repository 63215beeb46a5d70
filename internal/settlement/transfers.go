package settlement

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Transfers moves value between external accounts and a ledger's pool.
// Implementations may call back into the engine while a transfer runs; such
// calls can read the last committed state, and writes fail with
// ErrReentrantCall.
type Transfers interface {
	// Pull moves amount from an account into escrow.
	Pull(ctx context.Context, from common.Address, amount uint64) error
	// Push pays amount out of escrow to an account. A non-nil error means
	// nothing was paid.
	Push(ctx context.Context, to common.Address, amount uint64) error
}
