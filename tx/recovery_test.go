package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/buffer"
	"github.com/emberdb/emberdb/file"
	"github.com/emberdb/emberdb/log"
	"github.com/emberdb/emberdb/tx/concurrency"
)

// stack bundles the managers a fresh Transaction needs. Building a new log
// manager, buffer pool, and lock table over the same file.Manager models
// what a process restart after a crash actually re-derives: the durable
// files on disk survive, but every in-memory structure above them (the log
// tail, the buffer pool, lock state) is rebuilt from scratch.
type stack struct {
	fm *file.Manager
	lm *log.Manager
	bm *buffer.Manager
	lt *concurrency.LockTable
}

func newStack(t *testing.T, fm *file.Manager) *stack {
	t.Helper()
	lm, err := log.NewManager(fm, "logfile")
	require.NoError(t, err)
	bm := buffer.NewManager(fm, lm, 8)
	lt := concurrency.NewLockTable()
	return &stack{fm: fm, lm: lm, bm: bm, lt: lt}
}

func (s *stack) newTx() *Transaction {
	return NewTransaction(s.fm, s.lm, s.bm, s.lt)
}

// TestRecover_CommittedValueSurvivesFreshManagerStack commits a value, then
// rebuilds the log and buffer managers from scratch over the same durable
// file manager (simulating a process restart after a crash) and confirms
// that calling Recover followed by reading the block still observes the
// committed value.
func TestRecover_CommittedValueSurvivesFreshManagerStack(t *testing.T) {
	fm, err := file.NewManager(t.TempDir(), 400)
	require.NoError(t, err)

	first := newStack(t, fm)
	txA := first.newTx()
	block, err := txA.Append("testfile")
	require.NoError(t, err)
	require.NoError(t, txA.Pin(block))
	require.NoError(t, txA.SetInt(block, 80, 42, true))
	require.NoError(t, txA.SetString(block, 40, "committed", true))
	require.NoError(t, txA.Commit())

	second := newStack(t, fm)
	recoveryTx := second.newTx()
	require.NoError(t, recoveryTx.Recover())

	readTx := second.newTx()
	require.NoError(t, readTx.Pin(block))
	val, err := readTx.GetInt(block, 80)
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	str, err := readTx.GetString(block, 40)
	require.NoError(t, err)
	assert.Equal(t, "committed", str)
	require.NoError(t, readTx.Commit())
}

// TestRecover_UncommittedChangesAreUndone mirrors the commit-then-crash
// scenario: Txn A commits offset 0 = 1, then Txn B overwrites offset 0 =
// 9999 and the process dies (simulated by flushing the dirty buffer without
// ever writing a commit record). After rebuilding the stack and calling
// Recover, the block must reflect A's committed value, not B's.
func TestRecover_UncommittedChangesAreUndone(t *testing.T) {
	fm, err := file.NewManager(t.TempDir(), 400)
	require.NoError(t, err)

	first := newStack(t, fm)
	txA := first.newTx()
	block, err := txA.Append("testfile")
	require.NoError(t, err)
	require.NoError(t, txA.Pin(block))
	require.NoError(t, txA.SetInt(block, 0, 1, true))
	require.NoError(t, txA.SetString(block, 40, "one", true))
	require.NoError(t, txA.Commit())

	txB := first.newTx()
	require.NoError(t, txB.Pin(block))
	require.NoError(t, txB.SetInt(block, 0, 9999, true))
	// Flush the dirty buffer to disk without writing a commit record, as if
	// the process died after the buffer was evicted but before Commit ran.
	require.NoError(t, first.bm.FlushAll(int64(txB.TxNum())))

	second := newStack(t, fm)
	recoveryTx := second.newTx()
	require.NoError(t, recoveryTx.Recover())

	readTx := second.newTx()
	require.NoError(t, readTx.Pin(block))
	val, err := readTx.GetInt(block, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, val, "B's uncommitted write should have been undone, leaving A's committed value")

	str, err := readTx.GetString(block, 40)
	require.NoError(t, err)
	assert.Equal(t, "one", str)
	require.NoError(t, readTx.Commit())
}

// TestRollback_RestoresPriorValuesOnSameBlock writes two fields on the same
// block under one transaction, then rolls back, and checks that both fields
// are restored to their pre-transaction values in the order they were
// originally set.
func TestRollback_RestoresPriorValuesOnSameBlock(t *testing.T) {
	fm, err := file.NewManager(t.TempDir(), 400)
	require.NoError(t, err)
	s := newStack(t, fm)

	setup := s.newTx()
	block, err := setup.Append("testfile")
	require.NoError(t, err)
	require.NoError(t, setup.Pin(block))
	require.NoError(t, setup.SetInt(block, 80, 1, true))
	require.NoError(t, setup.SetString(block, 40, "original", true))
	require.NoError(t, setup.Commit())

	txA := s.newTx()
	require.NoError(t, txA.Pin(block))
	require.NoError(t, txA.SetInt(block, 80, 2, true))
	require.NoError(t, txA.SetString(block, 40, "changed", true))
	require.NoError(t, txA.Rollback())

	readTx := s.newTx()
	require.NoError(t, readTx.Pin(block))
	val, err := readTx.GetInt(block, 80)
	require.NoError(t, err)
	assert.Equal(t, 1, val)

	str, err := readTx.GetString(block, 40)
	require.NoError(t, err)
	assert.Equal(t, "original", str)
	require.NoError(t, readTx.Commit())
}
