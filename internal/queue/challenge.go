package queue

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eigerco/statementbank/internal/tally"
)

// Challenge is one question raised against the stater's claim.
type Challenge struct {
	Index     uint64
	Asker     common.Address
	Stake     uint64
	CreatedAt time.Time

	// Answered flips to true at most once. Tally is only meaningful after it does.
	Answered bool
	Tally    tally.Tally

	Resolved bool
	Outcome  tally.Outcome
}

// Score returns the vote score relative to baseline, and false while the
// challenge is unanswered.
func (c Challenge) Score(baseline int64) (int64, bool) {
	if !c.Answered {
		return 0, false
	}
	return c.Tally.Score(baseline), true
}
