package tally

import "fmt"

// Outcome is how a challenge was settled.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	// OutcomeDefault: the stater never answered, the questioner wins.
	OutcomeDefault
	// OutcomeStaterWins: the stake is forfeited to the pool.
	OutcomeStaterWins
	// OutcomeStaterLoses: the stake is refunded with an equal penalty.
	OutcomeStaterLoses
	// OutcomeSkipped: no challenge was recorded at the finalized index.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeDefault:
		return "questioner wins by default"
	case OutcomeStaterWins:
		return "stater wins"
	case OutcomeStaterLoses:
		return "stater loses"
	case OutcomeSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// RefundsAsker reports whether the asker is paid back their stake plus the
// penalty.
func (o Outcome) RefundsAsker() bool {
	return o == OutcomeDefault || o == OutcomeStaterLoses
}

// Decide settles a challenge. The stater needs a score strictly above the
// baseline; a tie at the baseline goes to the questioner.
func Decide(answered bool, t Tally, baseline int64) Outcome {
	if !answered {
		return OutcomeDefault
	}
	if t.Score(baseline) >= baseline+1 {
		return OutcomeStaterWins
	}
	return OutcomeStaterLoses
}
