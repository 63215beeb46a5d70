// Package settlement is the only mutator of a ledger. It validates every
// operation, moves value through Transfers and commits the new state as one
// indivisible step.
package settlement

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/eigerco/statementbank/internal/clock"
	"github.com/eigerco/statementbank/internal/ledger"
	"github.com/eigerco/statementbank/internal/queue"
	"github.com/eigerco/statementbank/pkg/log"
)

// Engine owns one ledger instance. Writes are serialized; reads are served
// from the state published by the last commit and never wait on a writer.
type Engine struct {
	mu     sync.Mutex
	params Params
	voters map[common.Address]struct{}
	state  *ledger.Instance
	view   atomic.Pointer[ledger.Instance]
	// transferring is set while a transfer runs with mu held.
	transferring atomic.Bool
	transfers    Transfers
	clock        clock.Clock
	journal      Journal
	log          zerolog.Logger
	feed         *feed
}

type options struct {
	clock   clock.Clock
	journal Journal
	logger  *zerolog.Logger
	salt    uint64
}

type Option func(*options)

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithJournal records every committed transition.
func WithJournal(j Journal) Option {
	return func(o *options) { o.journal = j }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithSalt distinguishes ledgers one stater creates within the same second.
func WithSalt(salt uint64) Option {
	return func(o *options) { o.salt = salt }
}

func newEngine(params Params, transfers Transfers, opts []Option) (*Engine, options) {
	o := options{clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.Settlement
	if o.logger != nil {
		logger = *o.logger
	}

	voters := make(map[common.Address]struct{}, len(params.Voters))
	for _, v := range params.Voters {
		voters[v] = struct{}{}
	}
	return &Engine{
		params:    params,
		voters:    voters,
		transfers: transfers,
		clock:     o.clock,
		journal:   o.journal,
		log:       logger,
		feed:      newFeed(logger),
	}, o
}

// Create opens a new ledger funded by caller. funding must equal
// params.Funding exactly.
func Create(ctx context.Context, params Params, transfers Transfers, caller common.Address, funding uint64, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if caller == (common.Address{}) {
		return nil, ErrZeroIdentity
	}
	if funding != params.Funding {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInsufficientFunding, funding, params.Funding)
	}

	e, o := newEngine(params, transfers, opts)

	now := e.clock.Now()
	in := &ledger.Instance{
		ID:        ledger.NewID(caller, now, o.salt),
		Stater:    caller,
		Funding:   params.Funding,
		Stake:     params.Stake,
		Baseline:  params.Baseline,
		Voters:    slices.Clone(params.Voters),
		CreatedAt: now,
		UnlockAt:  now.Add(params.LockPeriod),
		Queue:     queue.New(),
	}
	if params.ChallengeWindow > 0 {
		in.ChallengeDeadline = now.Add(params.ChallengeWindow)
	}
	if err := in.Credit(funding); err != nil {
		return nil, err
	}
	e.log = e.log.With().Str("ledger", in.ID.Hex()).Logger()

	if err := e.pull(ctx, caller, funding); err != nil {
		return nil, fmt.Errorf("collect funding: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = in
	e.commit(ctx, Event{Kind: EventCreated, Actor: caller, Amount: funding})
	return e, nil
}

// Open rebuilds an engine around a previously snapshotted instance. The
// ledger's terms are taken from the instance itself.
func Open(in *ledger.Instance, transfers Transfers, opts ...Option) (*Engine, error) {
	if err := ledger.CheckInvariants(in); err != nil {
		return nil, err
	}
	params := ParamsOf(in)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e, _ := newEngine(params, transfers, opts)
	e.state = in.Clone()
	e.view.Store(e.state.Clone())
	e.log = e.log.With().Str("ledger", in.ID.Hex()).Logger()
	return e, nil
}

// Subscribe delivers committed events to ch until ctx is done. Events are
// dropped rather than block the engine, so ch should be buffered.
func (e *Engine) Subscribe(ctx context.Context, ch chan<- Event) {
	e.feed.subscribe(ctx, ch)
}

// lock takes the write lock. A call made while this engine is inside a
// transfer fails instead of waiting: the engine cannot tell a payee calling
// back from an unrelated caller, and waiting would deadlock the former.
func (e *Engine) lock(ctx context.Context) error {
	if e.transferring.Load() {
		return ErrReentrantCall
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	return nil
}

func (e *Engine) pull(ctx context.Context, from common.Address, amount uint64) error {
	e.transferring.Store(true)
	defer e.transferring.Store(false)

	if err := e.transfers.Pull(ctx, from, amount); err != nil {
		e.log.Warn().Err(err).Str("from", from.Hex()).Uint64("amount", amount).Msg("pull rejected")
		return err
	}
	return nil
}

func (e *Engine) push(ctx context.Context, to common.Address, amount uint64) error {
	e.transferring.Store(true)
	defer e.transferring.Store(false)

	if err := e.transfers.Push(ctx, to, amount); err != nil {
		e.log.Warn().Err(err).Str("to", to.Hex()).Uint64("amount", amount).Msg("payout rejected")
		return err
	}
	return nil
}

// commit finishes a transition whose state is already in place. Caller holds
// the write lock.
func (e *Engine) commit(ctx context.Context, ev Event) {
	ev.Ledger = e.state.ID
	ev.Pool = e.state.Pool
	if ev.Time.IsZero() {
		ev.Time = e.clock.Now()
	}

	e.view.Store(e.state.Clone())

	e.log.Debug().
		Stringer("kind", ev.Kind).
		Uint64("index", ev.Index).
		Uint64("amount", ev.Amount).
		Uint64("pool", ev.Pool).
		Msg("transition committed")

	if e.journal != nil {
		if err := e.journal.Record(ctx, e.state, ev); err != nil {
			e.log.Error().Err(err).Stringer("kind", ev.Kind).Msg("journal record failed")
		}
	}
	e.feed.publish(ev)
}

func (e *Engine) ID() common.Hash {
	return e.view.Load().ID
}

func (e *Engine) Params() Params {
	p := e.params
	p.Voters = slices.Clone(e.params.Voters)
	return p
}

// Snapshot returns a deep copy of the last committed state.
func (e *Engine) Snapshot() *ledger.Instance {
	return e.view.Load().Clone()
}

func (e *Engine) Pool() uint64 {
	return e.view.Load().Pool
}

func (e *Engine) Stater() common.Address {
	return e.view.Load().Stater
}

func (e *Engine) FirstPending() uint64 {
	return e.view.Load().Queue.FirstPending()
}

func (e *Engine) Last() uint64 {
	return e.view.Load().Queue.Last()
}

func (e *Engine) CreatedAt() time.Time {
	return e.view.Load().CreatedAt
}

func (e *Engine) UnlockAt() time.Time {
	return e.view.Load().UnlockAt
}

func (e *Engine) ChallengeDeadline() time.Time {
	return e.view.Load().ChallengeDeadline
}

func (e *Engine) Challenge(index uint64) (queue.Challenge, error) {
	return e.view.Load().Queue.Get(index)
}

// Score returns the current vote score of an answered challenge.
func (e *Engine) Score(index uint64) (int64, error) {
	c, err := e.view.Load().Queue.Get(index)
	if err != nil {
		return 0, err
	}
	score, ok := c.Score(e.params.Baseline)
	if !ok {
		return 0, ErrNotYetAnswered
	}
	return score, nil
}
