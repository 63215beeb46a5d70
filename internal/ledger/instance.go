// Package ledger holds the authoritative state of one escrow ledger: the pool,
// the role identities, the time markers and the challenge queue.
package ledger

import (
	"encoding/binary"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eigerco/statementbank/internal/queue"
	"github.com/eigerco/statementbank/internal/safemath"
)

// Instance is the state of one ledger. Pool always equals Deposited - PaidOut;
// both counters only grow.
type Instance struct {
	ID     common.Hash
	Stater common.Address

	// Terms fixed at creation.
	Funding  uint64
	Stake    uint64
	Baseline int64
	// Voters restricts voting when non-empty.
	Voters []common.Address

	Pool      uint64
	Deposited uint64
	PaidOut   uint64

	CreatedAt time.Time
	// ChallengeDeadline is zero when challenges are accepted indefinitely.
	ChallengeDeadline time.Time
	UnlockAt          time.Time

	Queue *queue.Queue
}

// NewID derives the identifier of a ledger created by stater at createdAt.
// salt separates ledgers one stater creates within the same second.
func NewID(stater common.Address, createdAt time.Time, salt uint64) common.Hash {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(createdAt.Unix()))
	binary.BigEndian.PutUint64(buf[8:], salt)
	return crypto.Keccak256Hash(stater.Bytes(), buf[:])
}

// Credit moves amount into the pool.
func (in *Instance) Credit(amount uint64) error {
	pool, ok := safemath.Add(in.Pool, amount)
	if !ok {
		return ErrAmountOverflow
	}
	deposited, ok := safemath.Add(in.Deposited, amount)
	if !ok {
		return ErrAmountOverflow
	}
	in.Pool, in.Deposited = pool, deposited
	return nil
}

// Debit moves amount out of the pool.
func (in *Instance) Debit(amount uint64) error {
	pool, ok := safemath.Sub(in.Pool, amount)
	if !ok {
		return ErrInsufficientPool
	}
	paid, ok := safemath.Add(in.PaidOut, amount)
	if !ok {
		return ErrAmountOverflow
	}
	in.Pool, in.PaidOut = pool, paid
	return nil
}

// Unlocked reports whether the stater may withdraw at now.
func (in *Instance) Unlocked(now time.Time) bool {
	return !now.Before(in.UnlockAt)
}

// AcceptsChallenges reports whether a new challenge may be opened at now.
func (in *Instance) AcceptsChallenges(now time.Time) bool {
	return in.ChallengeDeadline.IsZero() || !now.After(in.ChallengeDeadline)
}

// Clone returns a deep copy.
func (in *Instance) Clone() *Instance {
	c := *in
	c.Voters = slices.Clone(in.Voters)
	if in.Queue != nil {
		c.Queue = in.Queue.Clone()
	}
	return &c
}
