package settlement

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eigerco/statementbank/internal/safemath"
	"github.com/eigerco/statementbank/internal/tally"
)

// Every write below follows the same shape: validate against the committed
// state, stage scalar changes on a shallow copy, run the single transfer,
// and only then touch the queue and commit the copy. Nothing is mutated
// before the transfer succeeds, and readers only see committed state.

// Resolution is the result of finalizing one queue slot.
type Resolution struct {
	Index   uint64
	Asker   common.Address
	Outcome tally.Outcome
	// Score is the final vote score; zero for unanswered or skipped slots.
	Score int64
	// Payout is what the asker received: zero or stake plus penalty.
	Payout uint64
}

// Deposit adds amount to the pool. Anyone may deposit at any time. Unlike an
// unconditional top-up, a zero amount is refused with ErrZeroAmount so that
// every recorded deposit moves value.
func (e *Engine) Deposit(ctx context.Context, caller common.Address, amount uint64) (uint64, error) {
	if err := e.lock(ctx); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	if amount == 0 {
		return 0, ErrZeroAmount
	}
	draft := *e.state
	if err := draft.Credit(amount); err != nil {
		return 0, err
	}
	if err := e.pull(ctx, caller, amount); err != nil {
		return 0, fmt.Errorf("collect deposit: %w", err)
	}

	*e.state = draft
	e.commit(ctx, Event{Kind: EventDeposited, Actor: caller, Amount: amount})
	return e.state.Pool, nil
}

// Stake opens a challenge for caller and returns its index.
func (e *Engine) Stake(ctx context.Context, caller common.Address, amount uint64) (uint64, error) {
	if err := e.lock(ctx); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	now := e.clock.Now()
	switch {
	case caller == (common.Address{}):
		return 0, ErrZeroIdentity
	case caller == e.state.Stater:
		return 0, ErrStaterCannotChallenge
	case amount != e.params.Stake:
		return 0, fmt.Errorf("%w: got %d, want %d", ErrInvalidStakeAmount, amount, e.params.Stake)
	case !e.state.AcceptsChallenges(now):
		return 0, fmt.Errorf("%w: deadline %s", ErrChallengeWindowClosed, e.state.ChallengeDeadline)
	}

	draft := *e.state
	if err := draft.Credit(amount); err != nil {
		return 0, err
	}
	if err := e.pull(ctx, caller, amount); err != nil {
		return 0, fmt.Errorf("collect stake: %w", err)
	}

	c := draft.Queue.Append(caller, amount, now)
	*e.state = draft
	e.commit(ctx, Event{Kind: EventStaked, Actor: caller, Index: c.Index, Amount: amount, Time: now})
	return c.Index, nil
}

// Answer records the stater's answer to challenge index and starts its tally
// at the baseline.
func (e *Engine) Answer(ctx context.Context, caller common.Address, index uint64) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.mu.Unlock()

	if caller != e.state.Stater {
		return ErrNotStater
	}
	c, err := e.state.Queue.Get(index)
	if err != nil {
		return err
	}
	if c.Resolved {
		return fmt.Errorf("%w: index %d", ErrChallengeResolved, index)
	}
	if c.Answered {
		return fmt.Errorf("%w: index %d", ErrAlreadyAnswered, index)
	}

	c.Answered = true
	c.Tally = tally.Tally{}
	if err := e.state.Queue.Put(c); err != nil {
		return err
	}
	e.commit(ctx, Event{Kind: EventAnswered, Actor: caller, Index: index, Score: e.params.Baseline})
	return nil
}

// Vote casts one vote on an answered challenge and returns the new score.
// Repeated votes from the same identity all count.
func (e *Engine) Vote(ctx context.Context, caller common.Address, index uint64, choice tally.Choice) (int64, error) {
	if err := e.lock(ctx); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	c, err := e.state.Queue.Get(index)
	if err != nil {
		return 0, err
	}
	if c.Resolved {
		return 0, fmt.Errorf("%w: index %d", ErrChallengeResolved, index)
	}
	if !c.Answered {
		return 0, fmt.Errorf("%w: index %d", ErrNotYetAnswered, index)
	}
	if len(e.voters) > 0 {
		if _, ok := e.voters[caller]; !ok {
			return 0, ErrNotVoter
		}
	}

	next, err := c.Tally.Add(choice)
	if err != nil {
		return 0, err
	}
	c.Tally = next
	if err := e.state.Queue.Put(c); err != nil {
		return 0, err
	}

	score := next.Score(e.params.Baseline)
	e.commit(ctx, Event{Kind: EventVoted, Actor: caller, Index: index, Choice: choice, Score: score})
	return score, nil
}

// FinalizeNext resolves the challenge at the head of the queue. Challenges
// are resolved strictly in index order, one per call.
func (e *Engine) FinalizeNext(ctx context.Context) (Resolution, error) {
	if err := e.lock(ctx); err != nil {
		return Resolution{}, err
	}
	defer e.mu.Unlock()

	c, ok, err := e.state.Queue.Head()
	if err != nil {
		return Resolution{}, err
	}

	if !ok {
		res := Resolution{Index: e.state.Queue.FirstPending(), Outcome: tally.OutcomeSkipped}
		if err := e.state.Queue.Advance(); err != nil {
			return Resolution{}, err
		}
		e.commit(ctx, Event{Kind: EventFinalized, Index: res.Index, Outcome: res.Outcome})
		return res, nil
	}

	res := Resolution{
		Index:   c.Index,
		Asker:   c.Asker,
		Outcome: tally.Decide(c.Answered, c.Tally, e.params.Baseline),
	}
	if score, answered := c.Score(e.params.Baseline); answered {
		res.Score = score
	}

	draft := *e.state
	if res.Outcome.RefundsAsker() {
		payout, ok := safemath.Mul(c.Stake, 2)
		if !ok {
			return Resolution{}, ErrAmountOverflow
		}
		if err := draft.Debit(payout); err != nil {
			return Resolution{}, fmt.Errorf("pay asker of challenge %d: %w", c.Index, err)
		}
		if err := e.push(ctx, c.Asker, payout); err != nil {
			return Resolution{}, fmt.Errorf("pay asker of challenge %d: %w", c.Index, err)
		}
		res.Payout = payout
	}

	c.Resolved = true
	c.Outcome = res.Outcome
	if err := draft.Queue.Put(c); err != nil {
		return Resolution{}, err
	}
	if err := draft.Queue.Advance(); err != nil {
		return Resolution{}, err
	}
	*e.state = draft

	e.log.Info().
		Uint64("index", res.Index).
		Stringer("outcome", res.Outcome).
		Int64("score", res.Score).
		Uint64("payout", res.Payout).
		Msg("challenge finalized")
	e.commit(ctx, Event{
		Kind:    EventFinalized,
		Actor:   c.Asker,
		Index:   res.Index,
		Amount:  res.Payout,
		Score:   res.Score,
		Outcome: res.Outcome,
	})
	return res, nil
}

// Withdraw pays the whole remaining pool to the stater once the unlock point
// has been reached. Unresolved challenges do not hold the pool back. The
// caller must be the stater (ErrNotStater); any other caller is refused even
// though the payout would go to the stater anyway.
func (e *Engine) Withdraw(ctx context.Context, caller common.Address) (uint64, error) {
	if err := e.lock(ctx); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()

	if caller != e.state.Stater {
		return 0, ErrNotStater
	}
	if now := e.clock.Now(); !e.state.Unlocked(now) {
		return 0, fmt.Errorf("%w: unlocks at %s", ErrLockedUntilDeadline, e.state.UnlockAt)
	}
	amount := e.state.Pool
	if amount == 0 {
		return 0, ErrNothingToWithdraw
	}

	draft := *e.state
	if err := draft.Debit(amount); err != nil {
		return 0, err
	}
	if err := e.push(ctx, draft.Stater, amount); err != nil {
		return 0, fmt.Errorf("pay stater: %w", err)
	}

	*e.state = draft
	e.log.Info().Uint64("amount", amount).Msg("pool withdrawn")
	e.commit(ctx, Event{Kind: EventWithdrawn, Actor: caller, Amount: amount})
	return amount, nil
}
