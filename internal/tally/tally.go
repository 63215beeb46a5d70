// Package tally keeps the running vote score of an answered challenge and
// turns it into a settlement outcome.
package tally

import (
	"errors"
	"fmt"
)

// DefaultBaseline is the neutral score an answered challenge starts from.
const DefaultBaseline int64 = 99

var ErrInvalidChoice = errors.New("invalid vote choice")

// Choice is a single vote on an answered challenge.
type Choice uint8

const (
	// Support favors the stater's answer.
	Support Choice = iota + 1
	// Oppose favors the questioner.
	Oppose
)

func (c Choice) Valid() bool {
	return c == Support || c == Oppose
}

func (c Choice) String() string {
	switch c {
	case Support:
		return "support"
	case Oppose:
		return "oppose"
	default:
		return fmt.Sprintf("choice(%d)", uint8(c))
	}
}

// ParseChoice accepts the names returned by String.
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "support":
		return Support, nil
	case "oppose":
		return Oppose, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
}

// Tally counts votes. Every vote counts, including repeats from one voter.
type Tally struct {
	Support uint64
	Oppose  uint64
}

// Add returns the tally with one more vote for c.
func (t Tally) Add(c Choice) (Tally, error) {
	switch c {
	case Support:
		t.Support++
	case Oppose:
		t.Oppose++
	default:
		return t, ErrInvalidChoice
	}
	return t, nil
}

// Score is baseline + Support - Oppose.
func (t Tally) Score(baseline int64) int64 {
	return baseline + int64(t.Support) - int64(t.Oppose)
}

func (t Tally) Votes() uint64 {
	return t.Support + t.Oppose
}
