package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eigerco/statementbank/internal/tally"
)

// CheckInvariants verifies the structural invariants of an instance.
func CheckInvariants(in *Instance) error {
	if in.Stater == (common.Address{}) {
		return fmt.Errorf("%w: zero stater", ErrInvariant)
	}
	if in.PaidOut > in.Deposited || in.Pool != in.Deposited-in.PaidOut {
		return fmt.Errorf("%w: pool %d != deposited %d - paid out %d", ErrInvariant, in.Pool, in.Deposited, in.PaidOut)
	}
	if in.UnlockAt.Before(in.CreatedAt) {
		return fmt.Errorf("%w: unlock point before creation", ErrInvariant)
	}
	if !in.ChallengeDeadline.IsZero() && in.ChallengeDeadline.Before(in.CreatedAt) {
		return fmt.Errorf("%w: challenge deadline before creation", ErrInvariant)
	}
	if in.Queue == nil {
		return fmt.Errorf("%w: missing queue", ErrInvariant)
	}

	first := in.Queue.FirstPending()
	if first == 0 || first > in.Queue.Last()+1 {
		return fmt.Errorf("%w: first pending %d, last %d", ErrInvariant, first, in.Queue.Last())
	}
	for _, c := range in.Queue.Challenges() {
		if c.Resolved != (c.Index < first) {
			return fmt.Errorf("%w: challenge %d resolved=%v behind cursor %d", ErrInvariant, c.Index, c.Resolved, first)
		}
		if c.Resolved == (c.Outcome == tally.OutcomePending) {
			return fmt.Errorf("%w: challenge %d resolved=%v with outcome %s", ErrInvariant, c.Index, c.Resolved, c.Outcome)
		}
		if !c.Answered && c.Tally.Votes() != 0 {
			return fmt.Errorf("%w: challenge %d has votes but no answer", ErrInvariant, c.Index)
		}
		if c.Asker == in.Stater {
			return fmt.Errorf("%w: challenge %d raised by the stater", ErrInvariant, c.Index)
		}
	}
	return nil
}
