package store

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/blake2b"

	"github.com/eigerco/statementbank/internal/settlement"
	"github.com/eigerco/statementbank/internal/tally"
)

// Entry is one link of a ledger's audit chain. Hash commits to Prev and to
// every field of Event, so rewriting any entry breaks every later link.
type Entry struct {
	Seq   uint64
	Prev  common.Hash
	Hash  common.Hash
	Event settlement.Event
}

type encBody struct {
	Seq      uint64
	Prev     common.Hash
	Kind     uint8
	Ledger   common.Hash
	Actor    common.Address
	Index    uint64
	Amount   uint64
	Choice   uint8
	ScoreNeg bool
	ScoreAbs uint64
	Outcome  uint8
	Pool     uint64
	Time     uint64
}

type encEntry struct {
	Body encBody
	Hash common.Hash
}

func newBody(seq uint64, prev common.Hash, ev settlement.Event) encBody {
	b := encBody{
		Seq:     seq,
		Prev:    prev,
		Kind:    uint8(ev.Kind),
		Ledger:  ev.Ledger,
		Actor:   ev.Actor,
		Index:   ev.Index,
		Amount:  ev.Amount,
		Choice:  uint8(ev.Choice),
		Outcome: uint8(ev.Outcome),
		Pool:    ev.Pool,
	}
	if ev.Score < 0 {
		b.ScoreNeg = true
		b.ScoreAbs = uint64(-ev.Score)
	} else {
		b.ScoreAbs = uint64(ev.Score)
	}
	if !ev.Time.IsZero() {
		b.Time = uint64(ev.Time.Unix())
	}
	return b
}

func (b encBody) hash() (common.Hash, error) {
	raw, err := rlp.EncodeToBytes(&b)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode entry: %w", err)
	}
	return common.Hash(blake2b.Sum256(raw)), nil
}

func (b encBody) event() settlement.Event {
	ev := settlement.Event{
		Kind:    settlement.EventKind(b.Kind),
		Ledger:  b.Ledger,
		Actor:   b.Actor,
		Index:   b.Index,
		Amount:  b.Amount,
		Choice:  tally.Choice(b.Choice),
		Score:   int64(b.ScoreAbs),
		Outcome: tally.Outcome(b.Outcome),
		Pool:    b.Pool,
	}
	if b.ScoreNeg {
		ev.Score = -ev.Score
	}
	if b.Time != 0 {
		ev.Time = time.Unix(int64(b.Time), 0).UTC()
	}
	return ev
}

func encodeEntry(seq uint64, prev common.Hash, ev settlement.Event) (Entry, []byte, error) {
	body := newBody(seq, prev, ev)
	h, err := body.hash()
	if err != nil {
		return Entry{}, nil, err
	}
	raw, err := rlp.EncodeToBytes(&encEntry{Body: body, Hash: h})
	if err != nil {
		return Entry{}, nil, fmt.Errorf("encode entry: %w", err)
	}
	return Entry{Seq: seq, Prev: prev, Hash: h, Event: body.event()}, raw, nil
}

func decodeEntry(raw []byte) (Entry, encBody, error) {
	var enc encEntry
	if err := rlp.DecodeBytes(raw, &enc); err != nil {
		return Entry{}, encBody{}, fmt.Errorf("decode entry: %w", err)
	}
	return Entry{
		Seq:   enc.Body.Seq,
		Prev:  enc.Body.Prev,
		Hash:  enc.Hash,
		Event: enc.Body.event(),
	}, enc.Body, nil
}
