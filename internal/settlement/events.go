package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/eigerco/statementbank/internal/ledger"
	"github.com/eigerco/statementbank/internal/tally"
)

type EventKind uint8

const (
	EventCreated EventKind = iota + 1
	EventDeposited
	EventStaked
	EventAnswered
	EventVoted
	EventFinalized
	EventWithdrawn
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventDeposited:
		return "deposited"
	case EventStaked:
		return "staked"
	case EventAnswered:
		return "answered"
	case EventVoted:
		return "voted"
	case EventFinalized:
		return "finalized"
	case EventWithdrawn:
		return "withdrawn"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event describes one committed transition. Fields that do not apply to the
// kind are zero.
type Event struct {
	Kind    EventKind
	Ledger  common.Hash
	Actor   common.Address
	Index   uint64
	Amount  uint64
	Choice  tally.Choice
	Score   int64
	Outcome tally.Outcome
	Pool    uint64
	Time    time.Time
}

// Journal receives every committed transition, in order, together with the
// resulting state. Record is called with the engine lock held and must not
// retain in or call back into the engine.
type Journal interface {
	Record(ctx context.Context, in *ledger.Instance, ev Event) error
}

// feed fans events out to subscribers without ever blocking the engine.
type feed struct {
	mu   sync.Mutex
	subs map[chan<- Event]struct{}
	log  zerolog.Logger
}

func newFeed(log zerolog.Logger) *feed {
	return &feed{subs: make(map[chan<- Event]struct{}), log: log}
}

func (f *feed) subscribe(ctx context.Context, ch chan<- Event) {
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}()
}

func (f *feed) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- ev:
		default:
			f.log.Warn().Stringer("kind", ev.Kind).Uint64("index", ev.Index).Msg("subscriber too slow, event dropped")
		}
	}
}
