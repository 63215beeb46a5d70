package queue

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Queue is the append-only, FIFO sequence of challenges of one ledger.
// Indices start at 1. FirstPending names the oldest unresolved index and is
// Last+1 when nothing is pending.
type Queue struct {
	challenges   map[uint64]Challenge
	firstPending uint64
	last         uint64
}

func New() *Queue {
	return &Queue{
		challenges:   make(map[uint64]Challenge),
		firstPending: 1,
	}
}

// Restore rebuilds a queue from its cursors and records, checking that the
// records agree with the cursors.
func Restore(firstPending, last uint64, challenges []Challenge) (*Queue, error) {
	if firstPending == 0 || firstPending > last+1 {
		return nil, fmt.Errorf("%w: first pending %d, last %d", ErrCorruptQueue, firstPending, last)
	}
	q := &Queue{
		challenges:   make(map[uint64]Challenge, len(challenges)),
		firstPending: firstPending,
		last:         last,
	}
	for _, c := range challenges {
		if c.Index == 0 || c.Index > last {
			return nil, fmt.Errorf("%w: index %d outside 1..%d", ErrCorruptQueue, c.Index, last)
		}
		if _, dup := q.challenges[c.Index]; dup {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrCorruptQueue, c.Index)
		}
		if c.Resolved != (c.Index < firstPending) {
			return nil, fmt.Errorf("%w: index %d resolved=%v with first pending %d", ErrCorruptQueue, c.Index, c.Resolved, firstPending)
		}
		q.challenges[c.Index] = c
	}
	return q, nil
}

func (q *Queue) FirstPending() uint64 { return q.firstPending }
func (q *Queue) Last() uint64         { return q.last }

// Pending is the number of indices not yet finalized.
func (q *Queue) Pending() uint64 {
	return q.last + 1 - q.firstPending
}

// Append records a new challenge at index Last+1.
func (q *Queue) Append(asker common.Address, stake uint64, at time.Time) Challenge {
	q.last++
	c := Challenge{
		Index:     q.last,
		Asker:     asker,
		Stake:     stake,
		CreatedAt: at,
	}
	q.challenges[c.Index] = c
	return c
}

func (q *Queue) Get(index uint64) (Challenge, error) {
	c, ok := q.challenges[index]
	if !ok {
		return Challenge{}, fmt.Errorf("%w: index %d", ErrChallengeNotFound, index)
	}
	return c, nil
}

// Put replaces an existing record.
func (q *Queue) Put(c Challenge) error {
	if _, ok := q.challenges[c.Index]; !ok {
		return fmt.Errorf("%w: index %d", ErrChallengeNotFound, c.Index)
	}
	q.challenges[c.Index] = c
	return nil
}

// Head returns the challenge at FirstPending. ok is false when no record
// exists at that index.
func (q *Queue) Head() (c Challenge, ok bool, err error) {
	if q.firstPending > q.last {
		return Challenge{}, false, ErrNoPendingChallenge
	}
	c, ok = q.challenges[q.firstPending]
	return c, ok, nil
}

// Advance moves FirstPending forward by exactly one.
func (q *Queue) Advance() error {
	if q.firstPending > q.last {
		return ErrNoPendingChallenge
	}
	q.firstPending++
	return nil
}

// Challenges returns every record ordered by index.
func (q *Queue) Challenges() []Challenge {
	out := make([]Challenge, 0, len(q.challenges))
	for _, idx := range slices.Sorted(maps.Keys(q.challenges)) {
		out = append(out, q.challenges[idx])
	}
	return out
}

func (q *Queue) Clone() *Queue {
	return &Queue{
		challenges:   maps.Clone(q.challenges),
		firstPending: q.firstPending,
		last:         q.last,
	}
}
