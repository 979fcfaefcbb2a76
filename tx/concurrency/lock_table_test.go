package concurrency

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdb/emberdb/file"
)

func TestLockTable_MultipleSharedLocksCoexist(t *testing.T) {
	lt := NewLockTable()
	block := file.NewBlockId("testfile", 1)

	require.NoError(t, lt.SLock(block))
	require.NoError(t, lt.SLock(block))

	lt.Unlock(block)
	lt.Unlock(block)
}

func TestLockTable_ExclusiveLockExcludesSharedLock(t *testing.T) {
	lt := NewLockTable()
	block := file.NewBlockId("testfile", 1)

	require.NoError(t, lt.XLock(block))

	done := make(chan error, 1)
	go func() { done <- lt.SLock(block) }()

	select {
	case <-done:
		t.Fatal("SLock should not succeed while an exclusive lock is held")
	case <-time.After(200 * time.Millisecond):
	}

	lt.Unlock(block)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("SLock did not proceed after the exclusive lock was released")
	}
}

func TestLockTable_XLockUpgradeFromSoleSharedHolderSucceeds(t *testing.T) {
	lt := NewLockTable()
	block := file.NewBlockId("testfile", 1)

	require.NoError(t, lt.SLock(block))

	done := make(chan error, 1)
	go func() { done <- lt.XLock(block) }()

	select {
	case err := <-done:
		assert.NoError(t, err, "XLock should upgrade immediately when the caller is the only shared holder")
	case <-time.After(2 * time.Second):
		t.Fatal("XLock upgrade from sole shared holder should not block")
	}
}

func TestLockTable_SLockAbortsWhenExclusiveLockNeverReleased(t *testing.T) {
	lt := NewLockTable()
	block := file.NewBlockId("testfile", 1)

	require.NoError(t, lt.XLock(block))

	start := time.Now()
	err := lt.SLock(block)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockAbort))
	assert.GreaterOrEqual(t, elapsed, 9*time.Second)
}

func TestLockTable_UnlockIsIndependentPerBlock(t *testing.T) {
	lt := NewLockTable()
	block1 := file.NewBlockId("testfile", 1)
	block2 := file.NewBlockId("testfile", 2)

	require.NoError(t, lt.XLock(block1))
	require.NoError(t, lt.XLock(block2))

	lt.Unlock(block1)

	require.NoError(t, lt.SLock(block1))

	done := make(chan error, 1)
	go func() { done <- lt.SLock(block2) }()
	select {
	case <-done:
		t.Fatal("block2 should still be exclusively locked")
	case <-time.After(200 * time.Millisecond):
	}

	lt.Unlock(block2)
	lt.Unlock(block1)
}
