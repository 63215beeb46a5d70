package settlement

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/statementbank/internal/bank"
	"github.com/eigerco/statementbank/internal/clock"
	"github.com/eigerco/statementbank/internal/ledger"
)

var (
	stater = common.HexToAddress("0x5a7e000000000000000000000000000000000001")
	alice  = common.HexToAddress("0xa11ce00000000000000000000000000000000002")
	bob    = common.HexToAddress("0xb0b0000000000000000000000000000000000003")
	carol  = common.HexToAddress("0xca20100000000000000000000000000000000004")
	t0     = time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
)

const startingBalance = 100

func testParams() Params {
	return Params{
		Funding:    40,
		Stake:      4,
		Baseline:   99,
		LockPeriod: 24 * time.Hour,
	}
}

type fixture struct {
	engine *Engine
	book   *bank.Book
	clock  *clock.Manual
	total  uint64
}

func newFixture(t *testing.T, params Params, opts ...Option) *fixture {
	t.Helper()

	book := bank.NewBook()
	for _, a := range []common.Address{stater, alice, bob, carol} {
		require.NoError(t, book.Credit(a, startingBalance))
	}
	clk := clock.NewManual(t0)

	opts = append([]Option{WithClock(clk)}, opts...)
	e, err := Create(context.Background(), params, book, stater, params.Funding, opts...)
	require.NoError(t, err)

	return &fixture{engine: e, book: book, clock: clk, total: 4 * startingBalance}
}

// requireConserved checks that value only ever moves between the book and the
// pool, and that the ledger invariants hold.
func (f *fixture) requireConserved(t *testing.T) {
	t.Helper()
	require.Equal(t, f.total, f.book.Total()+f.engine.Pool())
	require.NoError(t, ledger.CheckInvariants(f.engine.Snapshot()))
}

// asker returns a distinct identity for bulk tests.
func asker(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

func (f *fixture) stake(t *testing.T, who common.Address) uint64 {
	t.Helper()
	idx, err := f.engine.Stake(context.Background(), who, f.engine.Params().Stake)
	require.NoError(t, err)
	return idx
}

type mockTransfers struct {
	mock.Mock
}

func (m *mockTransfers) Pull(ctx context.Context, from common.Address, amount uint64) error {
	return m.Called(ctx, from, amount).Error(0)
}

func (m *mockTransfers) Push(ctx context.Context, to common.Address, amount uint64) error {
	return m.Called(ctx, to, amount).Error(0)
}

type recordingJournal struct {
	mu     sync.Mutex
	events []Event
	pools  []uint64
	err    error
}

func (j *recordingJournal) Record(_ context.Context, in *ledger.Instance, ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	j.pools = append(j.pools, in.Pool)
	return j.err
}

func (j *recordingJournal) kinds() []EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]EventKind, 0, len(j.events))
	for _, ev := range j.events {
		out = append(out, ev.Kind)
	}
	return out
}
