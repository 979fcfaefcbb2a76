// Package concurrency implements the engine's two-phase locking machinery:
// a process-wide LockTable of shared/exclusive locks keyed by block, and a
// per-transaction Manager that caches which locks a transaction already
// holds.
package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emberdb/emberdb/file"
	"github.com/sirupsen/logrus"
)

// lockTimeout is how long a caller waits for a conflicting lock to clear
// before giving up.
const lockTimeout = 10 * time.Second

// ErrLockAbort is returned when a lock could not be acquired within the
// timeout. The caller must abort its transaction.
var ErrLockAbort = errors.New("lock abort exception")

// LockTable holds the process-wide lock state. Per block, the value is 0
// (unlocked), a positive count of shared holders, or -1 (one exclusive
// holder). A single instance is shared by every transaction in the process.
type LockTable struct {
	mu    sync.Mutex
	cond  *sync.Cond
	locks map[file.BlockId]int
	log   *logrus.Logger
}

// NewLockTable creates an empty, process-wide lock table.
func NewLockTable() *LockTable {
	lt := &LockTable{locks: make(map[file.BlockId]int), log: logrus.StandardLogger()}
	lt.cond = sync.NewCond(&lt.mu)
	return lt
}

// SetLogger overrides the logger used for lock-wait diagnostics. Passing nil
// restores the standard logger.
func (lt *LockTable) SetLogger(logger *logrus.Logger) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	lt.log = logger
}

func (lt *LockTable) valueOf(block file.BlockId) int {
	return lt.locks[block]
}

// SLock grants a shared lock on block, waiting while an exclusive lock is
// held elsewhere. Returns ErrLockAbort if the wait exceeds lockTimeout.
func (lt *LockTable) SLock(block *file.BlockId) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if err := lt.waitUntil(block, func(v int) bool { return v >= 0 }); err != nil {
		return err
	}
	lt.locks[*block] = lt.valueOf(*block) + 1
	return nil
}

// XLock grants an exclusive lock on block. The caller may already hold its
// own shared lock (value == 1); XLock waits only while *other* shared
// holders remain.
func (lt *LockTable) XLock(block *file.BlockId) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if err := lt.waitUntil(block, func(v int) bool { return v <= 1 }); err != nil {
		return err
	}
	lt.locks[*block] = -1
	return nil
}

// Unlock releases one holder's lock on block, notifying any waiters.
func (lt *LockTable) Unlock(block *file.BlockId) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	v := lt.valueOf(*block)
	if v > 1 {
		lt.locks[*block] = v - 1
	} else {
		delete(lt.locks, *block)
	}
	lt.cond.Broadcast()
}

// waitUntil blocks (with a timeout) until ready(currentValue) holds, re-
// checking every time the condition variable is signaled. Caller must hold
// lt.mu.
func (lt *LockTable) waitUntil(block *file.BlockId, ready func(int) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			lt.mu.Lock()
			lt.cond.Broadcast()
			lt.mu.Unlock()
		case <-done:
		}
	}()

	for !ready(lt.valueOf(*block)) {
		lt.cond.Wait()
		if ctx.Err() != nil {
			lt.log.WithFields(logrus.Fields{"component": "locktable", "block": block.String()}).
				Warn("timed out waiting for a conflicting lock to clear")
			return fmt.Errorf("%w: timed out waiting for lock on block %s", ErrLockAbort, block.String())
		}
	}
	return nil
}
