// Package store persists ledgers. Every committed transition writes the new
// snapshot and one hash-chained audit entry in a single batch.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/eigerco/statementbank/internal/ledger"
	"github.com/eigerco/statementbank/internal/settlement"
	"github.com/eigerco/statementbank/pkg/db"
	"github.com/eigerco/statementbank/pkg/db/pebble"
	"github.com/eigerco/statementbank/pkg/log"
)

var (
	ErrLedgerNotFound = errors.New("ledger not found")
	ErrJournalClosed  = errors.New("journal is closed")
	ErrBrokenChain    = errors.New("audit chain broken")
)

type head struct {
	seq  uint64
	hash common.Hash
}

// Journal implements settlement.Journal on top of a KVStore. It may be shared
// by any number of engines.
type Journal struct {
	db     db.KVStore
	closed atomic.Bool
	log    zerolog.Logger

	mu    sync.Mutex
	heads map[common.Hash]head
}

var _ settlement.Journal = (*Journal)(nil)

// NewJournal creates a journal using KVStore
func NewJournal(kv db.KVStore) *Journal {
	return &Journal{
		db:    kv,
		log:   log.Store,
		heads: make(map[common.Hash]head),
	}
}

// Record stores the snapshot of in and appends ev to the ledger's chain.
func (j *Journal) Record(ctx context.Context, in *ledger.Instance, ev settlement.Event) error {
	if j.closed.Load() {
		return ErrJournalClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	h, err := j.head(in.ID)
	if err != nil {
		return err
	}
	snapshot, err := ledger.EncodeSnapshot(in)
	if err != nil {
		return err
	}
	entry, raw, err := encodeEntry(h.seq+1, h.hash, ev)
	if err != nil {
		return err
	}

	batch := j.db.NewBatch()
	defer batch.Close() //nolint:errcheck

	if err := batch.Put(makeKey(prefixSnapshot, in.ID), snapshot); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if err := batch.Put(entryKey(in.ID, entry.Seq), raw); err != nil {
		return fmt.Errorf("store entry: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	j.heads[in.ID] = head{seq: entry.Seq, hash: entry.Hash}
	j.log.Debug().
		Str("ledger", in.ID.Hex()).
		Uint64("seq", entry.Seq).
		Stringer("kind", ev.Kind).
		Str("hash", entry.Hash.Hex()).
		Msg("entry recorded")
	return nil
}

// head returns the last link of a ledger's chain, loading it on first use.
// Caller holds j.mu.
func (j *Journal) head(id common.Hash) (head, error) {
	if h, ok := j.heads[id]; ok {
		return h, nil
	}
	entries, err := j.Entries(id)
	if err != nil {
		return head{}, err
	}
	var h head
	if n := len(entries); n > 0 {
		h = head{seq: entries[n-1].Seq, hash: entries[n-1].Hash}
	}
	j.heads[id] = h
	return h, nil
}

// Ledgers lists the ids of every stored ledger in key order.
func (j *Journal) Ledgers() ([]common.Hash, error) {
	if j.closed.Load() {
		return nil, ErrJournalClosed
	}

	iter, err := j.db.NewIterator([]byte{prefixSnapshot}, []byte{prefixSnapshot + 1})
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	var ids []common.Hash
	for iter.Next() {
		key := iter.Key()
		if len(key) != 1+common.HashLength {
			j.log.Warn().Hex("key", key).Msg("skipping malformed snapshot key")
			continue
		}
		ids = append(ids, common.BytesToHash(key[1:]))
	}
	return ids, nil
}

// Snapshot loads the latest stored state of a ledger.
func (j *Journal) Snapshot(id common.Hash) (*ledger.Instance, error) {
	if j.closed.Load() {
		return nil, ErrJournalClosed
	}

	raw, err := j.db.Get(makeKey(prefixSnapshot, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrLedgerNotFound, id.Hex())
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return ledger.DecodeSnapshot(raw)
}

// Entries returns a ledger's audit chain in order. Entries are returned as
// stored; use Verify to check the links.
func (j *Journal) Entries(id common.Hash) ([]Entry, error) {
	if j.closed.Load() {
		return nil, ErrJournalClosed
	}

	prefix := makeKey(prefixEntry, id)
	iter, err := j.db.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	var entries []Entry
	for iter.Next() {
		raw, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read entry: %w", err)
		}
		e, _, err := decodeEntry(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Verify walks a ledger's chain and checks every link, then checks that the
// last entry agrees with the stored snapshot. It returns the number of
// entries checked.
func (j *Journal) Verify(id common.Hash) (int, error) {
	if j.closed.Load() {
		return 0, ErrJournalClosed
	}

	snapshot, err := j.Snapshot(id)
	if err != nil {
		return 0, err
	}

	prefix := makeKey(prefixEntry, id)
	iter, err := j.db.NewIterator(prefix, db.PrefixEnd(prefix))
	if err != nil {
		return 0, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	var (
		prev  head
		count int
		last  Entry
	)
	for iter.Next() {
		raw, err := iter.Value()
		if err != nil {
			return count, fmt.Errorf("read entry: %w", err)
		}
		e, body, err := decodeEntry(raw)
		if err != nil {
			return count, fmt.Errorf("%w: %w", ErrBrokenChain, err)
		}
		if e.Seq != prev.seq+1 {
			return count, fmt.Errorf("%w: entry %d follows %d", ErrBrokenChain, e.Seq, prev.seq)
		}
		if e.Prev != prev.hash {
			return count, fmt.Errorf("%w: entry %d does not link to its predecessor", ErrBrokenChain, e.Seq)
		}
		want, err := body.hash()
		if err != nil {
			return count, err
		}
		if want != e.Hash {
			return count, fmt.Errorf("%w: entry %d hash mismatch", ErrBrokenChain, e.Seq)
		}
		if e.Event.Ledger != id {
			return count, fmt.Errorf("%w: entry %d belongs to ledger %s", ErrBrokenChain, e.Seq, e.Event.Ledger.Hex())
		}
		prev = head{seq: e.Seq, hash: e.Hash}
		last = e
		count++
	}

	if count == 0 {
		return 0, fmt.Errorf("%w: no entries", ErrBrokenChain)
	}
	if last.Event.Pool != snapshot.Pool {
		return count, fmt.Errorf("%w: last entry pool %d, snapshot pool %d", ErrBrokenChain, last.Event.Pool, snapshot.Pool)
	}
	return count, nil
}

// Close closes the journal and the underlying store
func (j *Journal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}
	return j.db.Close()
}
