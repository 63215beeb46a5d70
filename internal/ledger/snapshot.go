package ledger

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eigerco/statementbank/internal/queue"
	"github.com/eigerco/statementbank/internal/tally"
)

const snapshotVersion = 1

type encInstance struct {
	Version           uint64
	ID                common.Hash
	Stater            common.Address
	Funding           uint64
	Stake             uint64
	BaselineNeg       bool
	BaselineAbs       uint64
	Voters            []common.Address
	Pool              uint64
	Deposited         uint64
	PaidOut           uint64
	CreatedAt         uint64
	ChallengeDeadline uint64
	UnlockAt          uint64
	FirstPending      uint64
	Last              uint64
	Challenges        []encChallenge
}

type encChallenge struct {
	Index     uint64
	Asker     common.Address
	Stake     uint64
	CreatedAt uint64
	Answered  bool
	Support   uint64
	Oppose    uint64
	Resolved  bool
	Outcome   uint8
}

// EncodeSnapshot serializes an instance, including the terms it was created
// with, with rlp. Times are kept at second precision.
func EncodeSnapshot(in *Instance) ([]byte, error) {
	enc := encInstance{
		Version:           snapshotVersion,
		ID:                in.ID,
		Stater:            in.Stater,
		Funding:           in.Funding,
		Stake:             in.Stake,
		BaselineNeg:       in.Baseline < 0,
		BaselineAbs:       absInt64(in.Baseline),
		Voters:            in.Voters,
		Pool:              in.Pool,
		Deposited:         in.Deposited,
		PaidOut:           in.PaidOut,
		CreatedAt:         toUnix(in.CreatedAt),
		ChallengeDeadline: toUnix(in.ChallengeDeadline),
		UnlockAt:          toUnix(in.UnlockAt),
		FirstPending:      in.Queue.FirstPending(),
		Last:              in.Queue.Last(),
	}
	for _, c := range in.Queue.Challenges() {
		enc.Challenges = append(enc.Challenges, encChallenge{
			Index:     c.Index,
			Asker:     c.Asker,
			Stake:     c.Stake,
			CreatedAt: toUnix(c.CreatedAt),
			Answered:  c.Answered,
			Support:   c.Tally.Support,
			Oppose:    c.Tally.Oppose,
			Resolved:  c.Resolved,
			Outcome:   uint8(c.Outcome),
		})
	}
	b, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot. The result is checked
// against CheckInvariants.
func DecodeSnapshot(b []byte) (*Instance, error) {
	var enc encInstance
	if err := rlp.DecodeBytes(b, &enc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if enc.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, enc.Version)
	}

	challenges := make([]queue.Challenge, 0, len(enc.Challenges))
	for _, c := range enc.Challenges {
		challenges = append(challenges, queue.Challenge{
			Index:     c.Index,
			Asker:     c.Asker,
			Stake:     c.Stake,
			CreatedAt: fromUnix(c.CreatedAt),
			Answered:  c.Answered,
			Tally:     tally.Tally{Support: c.Support, Oppose: c.Oppose},
			Resolved:  c.Resolved,
			Outcome:   tally.Outcome(c.Outcome),
		})
	}
	q, err := queue.Restore(enc.FirstPending, enc.Last, challenges)
	if err != nil {
		return nil, err
	}

	in := &Instance{
		ID:                enc.ID,
		Stater:            enc.Stater,
		Funding:           enc.Funding,
		Stake:             enc.Stake,
		Baseline:          int64(enc.BaselineAbs),
		Voters:            enc.Voters,
		Pool:              enc.Pool,
		Deposited:         enc.Deposited,
		PaidOut:           enc.PaidOut,
		CreatedAt:         fromUnix(enc.CreatedAt),
		ChallengeDeadline: fromUnix(enc.ChallengeDeadline),
		UnlockAt:          fromUnix(enc.UnlockAt),
		Queue:             q,
	}
	if enc.BaselineNeg {
		in.Baseline = -in.Baseline
	}
	if err := CheckInvariants(in); err != nil {
		return nil, err
	}
	return in, nil
}

// absInt64 returns the magnitude of v; rlp has no signed integers.
func absInt64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func toUnix(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.Unix())
}

func fromUnix(s uint64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.Unix(int64(s), 0).UTC()
}
