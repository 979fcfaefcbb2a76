package concurrency

import (
	"sync"

	"github.com/emberdb/emberdb/file"
)

type lockType int

const (
	shared lockType = iota
	exclusive
)

// Manager is a transaction's private view of the lock table: it tracks
// which locks this transaction has already obtained so it never asks the
// shared LockTable twice for the same block, and releases everything it
// holds at commit or rollback.
type Manager struct {
	lockTable *LockTable

	mu    sync.Mutex
	locks map[file.BlockId]lockType
}

// NewManager creates a concurrency manager for a single transaction, backed
// by the given process-wide lock table.
func NewManager(lockTable *LockTable) *Manager {
	return &Manager{
		lockTable: lockTable,
		locks:     make(map[file.BlockId]lockType),
	}
}

// SLock obtains a shared lock on block, if this transaction does not already
// hold one.
func (m *Manager) SLock(block *file.BlockId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sLockLocked(block)
}

// XLock obtains an exclusive lock on block, upgrading from a shared lock
// this transaction already holds if necessary.
func (m *Manager) XLock(block *file.BlockId) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locks[*block] == exclusive {
		return nil
	}
	if err := m.sLockLocked(block); err != nil {
		return err
	}
	if err := m.lockTable.XLock(block); err != nil {
		return err
	}
	m.locks[*block] = exclusive
	return nil
}

// sLockLocked obtains a shared lock on block. Callers must already hold m.mu.
func (m *Manager) sLockLocked(block *file.BlockId) error {
	if _, ok := m.locks[*block]; ok {
		return nil
	}
	if err := m.lockTable.SLock(block); err != nil {
		return err
	}
	m.locks[*block] = shared
	return nil
}

// Release releases every lock this transaction holds and clears its cache.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for block := range m.locks {
		b := block
		m.lockTable.Unlock(&b)
	}
	m.locks = make(map[file.BlockId]lockType)
}
