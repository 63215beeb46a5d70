package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/urfave/cli.v1"

	"github.com/eigerco/statementbank/internal/bank"
	"github.com/eigerco/statementbank/internal/clock"
	"github.com/eigerco/statementbank/internal/safemath"
	"github.com/eigerco/statementbank/internal/settlement"
	"github.com/eigerco/statementbank/internal/store"
	"github.com/eigerco/statementbank/internal/tally"
	"github.com/eigerco/statementbank/pkg/db/pebble"
	"github.com/eigerco/statementbank/pkg/log"
)

var ledgerFlag = cli.StringFlag{
	Name:  "ledger",
	Usage: "Ledger id (0x-prefixed, 32 bytes)",
}

func openJournal(cfg *Config) (*store.Journal, error) {
	kv, err := pebble.NewKVStore(
		pebble.WithPath(filepath.Join(cfg.DataDir, "ledgers")),
		pebble.WithCacheMB(cfg.CacheMB),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store.NewJournal(kv), nil
}

func parseLedgerID(s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, errors.New("--ledger is required")
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid ledger id: %w", err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid ledger id: %d bytes", len(b))
	}
	return common.BytesToHash(b), nil
}

// identity derives a stable address from a name so simulated runs are
// reproducible.
func identity(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(name))[12:])
}

func simulateCommand(cfg *Config) cli.Command {
	return cli.Command{
		Name:  "simulate",
		Usage: "Run a scripted ledger through its life cycle and record it",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "challenges", Usage: "Number of challenges to open", Value: 2},
			cli.IntFlag{Name: "unanswered", Usage: "How many of the last challenges the stater ignores"},
			cli.IntFlag{Name: "votes", Usage: "Votes cast on each answered challenge", Value: 2},
			cli.StringFlag{Name: "choice", Usage: "Vote choice (support|oppose)", Value: "oppose"},
			cli.DurationFlag{Name: "lock", Usage: "Lock period; zero withdraws right after finalizing", Value: settlement.DefaultLockPeriod},
		},
		Action: func(c *cli.Context) error {
			challenges, unanswered, votes := c.Int("challenges"), c.Int("unanswered"), c.Int("votes")
			if challenges < 0 || unanswered < 0 || unanswered > challenges || votes < 0 {
				return fmt.Errorf("invalid challenge counts: challenges %d, unanswered %d, votes %d", challenges, unanswered, votes)
			}
			choice, err := tally.ParseChoice(c.String("choice"))
			if err != nil {
				return err
			}
			params := settlement.DefaultParams()
			params.LockPeriod = c.Duration("lock")
			return simulate(context.Background(), c, cfg, params, challenges, unanswered, votes, choice)
		},
	}
}

func simulate(ctx context.Context, c *cli.Context, cfg *Config, params settlement.Params, challenges, unanswered, votes int, choice tally.Choice) error {
	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer j.Close() //nolint:errcheck

	existing, err := j.Ledgers()
	if err != nil {
		return err
	}

	book := bank.NewBook()
	stater := identity("stater")
	if err := book.Credit(stater, params.Funding); err != nil {
		return err
	}

	e, err := settlement.Create(ctx, params, book, stater, params.Funding,
		settlement.WithJournal(j),
		settlement.WithSalt(uint64(len(existing))),
	)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	log.CLI.Info().Str("ledger", e.ID().Hex()).Msg("ledger created")

	for i := 0; i < challenges; i++ {
		asker := identity(fmt.Sprintf("asker-%d", i))
		if err := book.Credit(asker, params.Stake); err != nil {
			return err
		}
		idx, err := e.Stake(ctx, asker, params.Stake)
		if err != nil {
			return fmt.Errorf("stake: %w", err)
		}
		if i >= challenges-unanswered {
			continue
		}
		if err := e.Answer(ctx, stater, idx); err != nil {
			return fmt.Errorf("answer %d: %w", idx, err)
		}
		for v := 0; v < votes; v++ {
			if _, err := e.Vote(ctx, identity(fmt.Sprintf("voter-%d", v)), idx, choice); err != nil {
				return fmt.Errorf("vote on %d: %w", idx, err)
			}
		}
	}

	// Every challenge may end up refunded with penalty, so the pool must
	// cover that before the queue is drained
	need, ok := safemath.Mul(params.Stake, 2*uint64(challenges))
	if !ok {
		return fmt.Errorf("too many challenges: %d", challenges)
	}
	if pool := e.Pool(); need > pool {
		sponsor := identity("sponsor")
		if err := book.Credit(sponsor, need-pool); err != nil {
			return err
		}
		if _, err := e.Deposit(ctx, sponsor, need-pool); err != nil {
			return fmt.Errorf("deposit: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "sponsored: %s\n", formatAmount(need-pool, cfg.Decimals))
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "INDEX\tASKER\tOUTCOME\tSCORE\tPAYOUT\n")
	for e.FirstPending() <= e.Last() {
		res, err := e.FinalizeNext(ctx)
		if err != nil {
			return fmt.Errorf("finalize: %w", err)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", res.Index, res.Asker.Hex(), res.Outcome, res.Score, formatAmount(res.Payout, cfg.Decimals))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if e.Pool() > 0 && !(clock.System{}).Now().Before(e.UnlockAt()) {
		amount, err := e.Withdraw(ctx, stater)
		if err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "withdrawn: %s\n", formatAmount(amount, cfg.Decimals))
	}
	fmt.Fprintf(c.App.Writer, "ledger: %s\npool: %s\n", e.ID().Hex(), formatAmount(e.Pool(), cfg.Decimals))
	return nil
}

func ledgersCommand(cfg *Config) cli.Command {
	return cli.Command{
		Name:  "ledgers",
		Usage: "List stored ledgers",
		Action: func(c *cli.Context) error {
			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close() //nolint:errcheck

			ids, err := j.Ledgers()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "LEDGER\tSTATER\tPOOL\tPENDING\tUNLOCK\n")
			for _, id := range ids {
				in, err := j.Snapshot(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					id.Hex(), in.Stater.Hex(), formatAmount(in.Pool, cfg.Decimals), in.Queue.Pending(), formatTime(in.UnlockAt))
			}
			return w.Flush()
		},
	}
}

func inspectCommand(cfg *Config) cli.Command {
	return cli.Command{
		Name:  "inspect",
		Usage: "Show the state and challenges of one ledger",
		Flags: []cli.Flag{ledgerFlag},
		Action: func(c *cli.Context) error {
			id, err := parseLedgerID(c.String(ledgerFlag.Name))
			if err != nil {
				return err
			}
			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close() //nolint:errcheck

			in, err := j.Snapshot(id)
			if err != nil {
				return err
			}
			out := c.App.Writer
			fmt.Fprintf(out, "ledger:        %s\n", in.ID.Hex())
			fmt.Fprintf(out, "stater:        %s\n", in.Stater.Hex())
			fmt.Fprintf(out, "pool:          %s\n", formatAmount(in.Pool, cfg.Decimals))
			fmt.Fprintf(out, "deposited:     %s\n", formatAmount(in.Deposited, cfg.Decimals))
			fmt.Fprintf(out, "paid out:      %s\n", formatAmount(in.PaidOut, cfg.Decimals))
			fmt.Fprintf(out, "stake:         %s\n", formatAmount(in.Stake, cfg.Decimals))
			fmt.Fprintf(out, "baseline:      %d\n", in.Baseline)
			fmt.Fprintf(out, "created:       %s\n", formatTime(in.CreatedAt))
			fmt.Fprintf(out, "unlocks:       %s\n", formatTime(in.UnlockAt))
			fmt.Fprintf(out, "challenges to: %s\n", formatTime(in.ChallengeDeadline))
			fmt.Fprintf(out, "first pending: %d of %d\n\n", in.Queue.FirstPending(), in.Queue.Last())

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "INDEX\tASKER\tSTAKE\tANSWERED\tSUPPORT\tOPPOSE\tSCORE\tOUTCOME\n")
			for _, ch := range in.Queue.Challenges() {
				score := "-"
				if s, ok := ch.Score(in.Baseline); ok {
					score = fmt.Sprint(s)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\t%d\t%s\t%s\n",
					ch.Index, ch.Asker.Hex(), formatAmount(ch.Stake, cfg.Decimals), ch.Answered,
					ch.Tally.Support, ch.Tally.Oppose, score, ch.Outcome)
			}
			return w.Flush()
		},
	}
}

func verifyCommand(cfg *Config) cli.Command {
	return cli.Command{
		Name:  "verify",
		Usage: "Check the audit chain of one ledger against its snapshot",
		Flags: []cli.Flag{ledgerFlag},
		Action: func(c *cli.Context) error {
			id, err := parseLedgerID(c.String(ledgerFlag.Name))
			if err != nil {
				return err
			}
			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close() //nolint:errcheck

			n, err := j.Verify(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "ok: %d entries\n", n)
			return nil
		},
	}
}
