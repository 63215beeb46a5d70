package settlement

import (
	"errors"

	"github.com/eigerco/statementbank/internal/ledger"
	"github.com/eigerco/statementbank/internal/queue"
	"github.com/eigerco/statementbank/internal/tally"
)

// Validation errors
var (
	ErrInvalidParams         = errors.New("invalid settlement parameters")
	ErrInsufficientFunding   = errors.New("funding must equal the required amount")
	ErrInvalidStakeAmount    = errors.New("stake must equal the required amount")
	ErrStaterCannotChallenge = errors.New("stater cannot challenge its own claim")
	ErrNotStater             = errors.New("caller is not the stater")
	ErrNotVoter              = errors.New("caller is not on the voter panel")
	ErrZeroIdentity          = errors.New("zero identity")
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrInvalidChoice         = tally.ErrInvalidChoice
	ErrAmountOverflow        = ledger.ErrAmountOverflow
)

// Ordering errors
var (
	ErrChallengeNotFound  = queue.ErrChallengeNotFound
	ErrAlreadyAnswered    = errors.New("challenge already answered")
	ErrNotYetAnswered     = errors.New("challenge not yet answered")
	ErrChallengeResolved  = errors.New("challenge already resolved")
	ErrNoPendingChallenge = queue.ErrNoPendingChallenge
)

// Temporal errors
var (
	ErrLockedUntilDeadline   = errors.New("pool locked until the settlement unlock point")
	ErrChallengeWindowClosed = errors.New("challenge window closed")
)

// Settlement errors
var (
	ErrInsufficientPool  = ledger.ErrInsufficientPool
	ErrNothingToWithdraw = errors.New("nothing to withdraw")
	ErrReentrantCall     = errors.New("call made while a value transfer is in flight")
)
