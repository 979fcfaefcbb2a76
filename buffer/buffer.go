package buffer

import (
	"fmt"

	"github.com/emberdb/emberdb/file"
	"github.com/emberdb/emberdb/log"
)

// noTxn marks a buffer that has not been modified by any transaction.
const noTxn = -1

// Buffer wraps a single Page together with the bookkeeping the buffer pool
// and recovery layer need: which block (if any) it holds, how many callers
// currently have it pinned, and which transaction (if any) last modified it.
type Buffer struct {
	fileManager *file.Manager
	logManager  *log.Manager
	contents    *file.Page
	block       *file.BlockId
	pins        int
	txNum       int64
	lsn         int64
}

// NewBuffer creates an unassigned buffer backed by a fresh page.
func NewBuffer(fileManager *file.Manager, logManager *log.Manager) *Buffer {
	return &Buffer{
		fileManager: fileManager,
		logManager:  logManager,
		contents:    file.NewPage(fileManager.BlockSize()),
		txNum:       noTxn,
		lsn:         -1,
	}
}

// Contents returns the page this buffer wraps.
func (b *Buffer) Contents() *file.Page {
	return b.contents
}

// Block returns the block currently assigned to this buffer, or nil if unassigned.
func (b *Buffer) Block() *file.BlockId {
	return b.block
}

// SetModified records that transaction txNum changed this buffer's contents,
// producing a log record with sequence number lsn (or -1 if the change did
// not need logging).
func (b *Buffer) SetModified(txNum int64, lsn int64) {
	b.txNum = txNum
	if lsn >= 0 {
		b.lsn = lsn
	}
}

// modifyingTxn returns the id of the transaction that last modified this
// buffer, or noTxn if it is clean.
func (b *Buffer) modifyingTxn() int64 {
	return b.txNum
}

// isPinned reports whether any caller currently holds this buffer pinned.
func (b *Buffer) isPinned() bool {
	return b.pins > 0
}

func (b *Buffer) pin() {
	b.pins++
}

func (b *Buffer) unpin() {
	b.pins--
}

// assignToBlock flushes any dirty contents, then reads block into the page
// and resets the pin count. Callers must hold the buffer pool's lock.
func (b *Buffer) assignToBlock(block *file.BlockId) error {
	if err := b.flush(); err != nil {
		return fmt.Errorf("cannot flush buffer before reassignment: %w", err)
	}
	b.block = block
	if err := b.fileManager.Read(block, b.contents); err != nil {
		return fmt.Errorf("cannot read block %s into buffer: %w", block.String(), err)
	}
	b.pins = 0
	return nil
}

// flush writes this buffer's page back to disk if it is dirty, first
// forcing the log up through this buffer's recovery LSN (the WAL rule).
func (b *Buffer) flush() error {
	if b.txNum < 0 {
		return nil
	}
	if err := b.logManager.Flush(b.lsn); err != nil {
		return fmt.Errorf("cannot flush log up to lsn %d: %w", b.lsn, err)
	}
	if err := b.fileManager.Write(b.block, b.contents); err != nil {
		return fmt.Errorf("cannot write buffer to block %s: %w", b.block.String(), err)
	}
	b.txNum = noTxn
	return nil
}
