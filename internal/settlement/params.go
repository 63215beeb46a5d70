package settlement

import (
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eigerco/statementbank/internal/ledger"
	"github.com/eigerco/statementbank/internal/safemath"
	"github.com/eigerco/statementbank/internal/tally"
)

const (
	// DefaultFunding is 0.04 ether in wei.
	DefaultFunding uint64 = 40_000_000_000_000_000
	// DefaultStake is 0.004 ether in wei.
	DefaultStake      uint64 = 4_000_000_000_000_000
	DefaultLockPeriod        = 7 * 24 * time.Hour
)

// Params fixes the rules of a ledger at creation.
type Params struct {
	// Funding is the exact amount the stater deposits at creation.
	Funding uint64
	// Stake is the exact amount a questioner pays to open a challenge.
	Stake uint64
	// Baseline is the score an answered challenge starts from.
	Baseline int64
	// LockPeriod is the delay after creation before the stater may withdraw.
	LockPeriod time.Duration
	// ChallengeWindow closes new challenges this long after creation. Zero
	// keeps the window open.
	ChallengeWindow time.Duration
	// Voters restricts voting to the listed identities. Empty means anyone.
	Voters []common.Address
}

func DefaultParams() Params {
	return Params{
		Funding:    DefaultFunding,
		Stake:      DefaultStake,
		Baseline:   tally.DefaultBaseline,
		LockPeriod: DefaultLockPeriod,
	}
}

// ParamsOf recovers the terms a ledger was created with.
func ParamsOf(in *ledger.Instance) Params {
	p := Params{
		Funding:    in.Funding,
		Stake:      in.Stake,
		Baseline:   in.Baseline,
		LockPeriod: in.UnlockAt.Sub(in.CreatedAt),
		Voters:     slices.Clone(in.Voters),
	}
	if !in.ChallengeDeadline.IsZero() {
		p.ChallengeWindow = in.ChallengeDeadline.Sub(in.CreatedAt)
	}
	return p
}

func (p Params) Validate() error {
	if p.Funding == 0 {
		return fmt.Errorf("%w: zero funding", ErrInvalidParams)
	}
	if p.Stake == 0 {
		return fmt.Errorf("%w: zero stake", ErrInvalidParams)
	}
	if p.Stake == p.Funding {
		return fmt.Errorf("%w: stake equals funding", ErrInvalidParams)
	}
	if _, ok := safemath.Mul(p.Stake, 2); !ok {
		return fmt.Errorf("%w: stake too large to refund with penalty", ErrInvalidParams)
	}
	if p.LockPeriod < 0 || p.ChallengeWindow < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidParams)
	}
	seen := make(map[common.Address]struct{}, len(p.Voters))
	for _, v := range p.Voters {
		if v == (common.Address{}) {
			return fmt.Errorf("%w: zero voter", ErrInvalidParams)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: duplicate voter %s", ErrInvalidParams, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}
