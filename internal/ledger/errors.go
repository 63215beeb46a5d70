package ledger

import (
	"errors"
	"fmt"

	"github.com/eigerco/statementbank/internal/safemath"
)

var (
	ErrAmountOverflow     = fmt.Errorf("amount: %w", safemath.ErrOverflow)
	ErrInsufficientPool   = errors.New("pool balance too low for payout")
	ErrInvariant          = errors.New("ledger invariant violated")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)
