package main

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerLine = regexp.MustCompile(`ledger: (0x[0-9a-f]{64})`)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"statementbank", "--datadir", dir, "--log.level", "error"}, args...))
	return out.String(), err
}

func TestSimulateThenInspect(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "simulate", "--challenges", "3", "--unanswered", "1", "--choice", "oppose", "--lock", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "stater loses")
	assert.Contains(t, out, "questioner wins by default")
	// 0.04 funding + 3 * 0.004 stakes, all three refunded with penalty
	assert.Contains(t, out, "withdrawn: 0.028")
	assert.Contains(t, out, "pool: 0")

	m := ledgerLine.FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	out, err = run(t, dir, "ledgers")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = run(t, dir, "inspect", "--ledger", id)
	require.NoError(t, err)
	assert.Contains(t, out, "first pending: 4 of 3")
	assert.Contains(t, out, "paid out:      0.052")
	assert.Contains(t, out, "stake:         0.004")
	assert.Contains(t, out, "baseline:      99")

	out, err = run(t, dir, "verify", "--ledger", id)
	require.NoError(t, err)
	// created, 3 staked, 2 answered, 4 voted, 3 finalized, withdrawn
	assert.Equal(t, "ok: 14 entries\n", out)
}

func TestSimulateSponsorsShortfall(t *testing.T) {
	dir := t.TempDir()

	// 0.04 funding + 11 * 0.004 stakes cannot refund 11 * 0.008
	out, err := run(t, dir, "simulate", "--challenges", "11", "--choice", "oppose", "--lock", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "sponsored: 0.004")
	assert.Equal(t, 11, strings.Count(out, "stater loses"))
	assert.NotContains(t, out, "withdrawn")
	assert.Contains(t, out, "pool: 0")

	m := ledgerLine.FindStringSubmatch(out)
	require.Len(t, m, 2)
	out, err = run(t, dir, "verify", "--ledger", m[1])
	require.NoError(t, err)
	// created, 11 staked, 11 answered, 22 voted, deposited, 11 finalized
	assert.Equal(t, "ok: 57 entries\n", out)
}

func TestSimulateKeepsPoolWhileLocked(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "--units.decimals", "0", "simulate", "--choice", "support")
	require.NoError(t, err)
	assert.Contains(t, out, "stater wins")
	assert.NotContains(t, out, "withdrawn")
	assert.Contains(t, out, "pool: 48000000000000000")

	// A second run within the same second gets its own ledger
	_, err = run(t, dir, "simulate")
	require.NoError(t, err)
	out, err = run(t, dir, "ledgers")
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("\n")))
}

func TestLedgerFlagValidation(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "inspect")
	assert.ErrorContains(t, err, "--ledger is required")

	_, err = run(t, dir, "verify", "--ledger", "0x1234")
	assert.ErrorContains(t, err, "invalid ledger id")

	_, err = run(t, dir, "inspect", "--ledger", "0x"+string(bytes.Repeat([]byte("ab"), 32)))
	assert.ErrorContains(t, err, "ledger not found")
}

func TestSimulateRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "simulate", "--choice", "abstain")
	assert.Error(t, err)

	_, err = run(t, dir, "simulate", "--challenges", "1", "--unanswered", "2")
	assert.ErrorContains(t, err, "invalid challenge counts")
}
