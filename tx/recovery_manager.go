package tx

import (
	"fmt"
	"time"

	"github.com/emberdb/emberdb/buffer"
	"github.com/emberdb/emberdb/log"
)

// RecoveryManager is a transaction's private wrapper around the write-ahead
// log. It writes the SET* log records for a transaction's updates, and
// performs rollback and system-startup recovery by replaying those records
// backwards.
type RecoveryManager struct {
	logManager    *log.Manager
	bufferManager *buffer.Manager
	tx            *Transaction
	txNum         int
}

// NewRecoveryManager creates a recovery manager for the given transaction,
// writing a START record to the log.
func NewRecoveryManager(tx *Transaction, txNum int, logManager *log.Manager, bufferManager *buffer.Manager) (*RecoveryManager, error) {
	rm := &RecoveryManager{
		logManager:    logManager,
		bufferManager: bufferManager,
		tx:            tx,
		txNum:         txNum,
	}
	if _, err := WriteStartToLog(logManager, txNum); err != nil {
		return nil, fmt.Errorf("failed to write start record: %w", err)
	}
	return rm, nil
}

// Commit writes a commit record to the log, then flushes it to disk,
// after flushing all of the transaction's modified buffers.
func (rm *RecoveryManager) Commit() error {
	if err := rm.bufferManager.FlushAll(int64(rm.txNum)); err != nil {
		return err
	}
	lsn, err := WriteCommitToLog(rm.logManager, rm.txNum)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(int64(lsn))
}

// Rollback writes a rollback record to the log, undoing the transaction's
// modifications by reading the log backward to its start record, then
// flushing the transaction's buffers and the rollback record itself.
func (rm *RecoveryManager) Rollback() error {
	if err := rm.doRollback(); err != nil {
		return err
	}
	if err := rm.bufferManager.FlushAll(int64(rm.txNum)); err != nil {
		return err
	}
	lsn, err := WriteRollbackToLog(rm.logManager, rm.txNum)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(int64(lsn))
}

// Recover recovers uncompleted transactions from the log, then writes a
// quiescent checkpoint record to the log and flushes it. Called during
// system startup, before any user transactions begin.
func (rm *RecoveryManager) Recover() error {
	if err := rm.doRecover(); err != nil {
		return err
	}
	if err := rm.bufferManager.FlushAll(int64(rm.txNum)); err != nil {
		return err
	}
	lsn, err := WriteCheckpointToLog(rm.logManager)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(int64(lsn))
}

// SetInt writes a SETINT record to the log and returns its LSN.
func (rm *RecoveryManager) SetInt(buff *buffer.Buffer, offset int, _ int) (int, error) {
	oldVal := buff.Contents().GetInt(offset)
	block := buff.Block()
	return WriteSetIntToLog(rm.logManager, rm.txNum, block, offset, oldVal)
}

// SetString writes a SETSTRING record to the log and returns its LSN.
func (rm *RecoveryManager) SetString(buff *buffer.Buffer, offset int, _ string) (int, error) {
	oldVal, err := buff.Contents().GetString(offset)
	if err != nil {
		return -1, err
	}
	block := buff.Block()
	return WriteSetStringToLog(rm.logManager, rm.txNum, block, offset, oldVal)
}

// SetBool writes a SETBOOL record to the log and returns its LSN.
func (rm *RecoveryManager) SetBool(buff *buffer.Buffer, offset int, _ bool) (int, error) {
	oldVal := buff.Contents().GetBool(offset)
	block := buff.Block()
	return WriteSetBoolToLog(rm.logManager, rm.txNum, block, offset, oldVal)
}

// SetLong writes a SETLONG record to the log and returns its LSN.
func (rm *RecoveryManager) SetLong(buff *buffer.Buffer, offset int, _ int64) (int, error) {
	oldVal := buff.Contents().GetLong(offset)
	block := buff.Block()
	return WriteSetLongToLog(rm.logManager, rm.txNum, block, offset, oldVal)
}

// SetShort writes a SETSHORT record to the log and returns its LSN.
func (rm *RecoveryManager) SetShort(buff *buffer.Buffer, offset int, _ int16) (int, error) {
	oldVal := buff.Contents().GetShort(offset)
	block := buff.Block()
	return WriteSetShortToLog(rm.logManager, rm.txNum, block, offset, oldVal)
}

// SetDate writes a SETDATE record to the log and returns its LSN.
func (rm *RecoveryManager) SetDate(buff *buffer.Buffer, offset int, _ time.Time) (int, error) {
	oldVal := buff.Contents().GetDate(offset)
	block := buff.Block()
	return WriteSetDateToLog(rm.logManager, rm.txNum, block, offset, oldVal)
}

// doRollback rolls the transaction back by iterating through log records
// until it finds the transaction's START record, undoing every SET record
// belonging to this transaction along the way.
func (rm *RecoveryManager) doRollback() error {
	iter, err := rm.logManager.Iterator()
	if err != nil {
		return err
	}

	for iter.HasNext() {
		bytes, err := iter.Next()
		if err != nil {
			return err
		}
		record, err := CreateLogRecord(bytes)
		if err != nil {
			return err
		}

		if record.TxNumber() == rm.txNum {
			if record.Op() == Start {
				return nil
			}
			if err := record.Undo(rm.tx); err != nil {
				return err
			}
		}
	}
	return nil
}

// doRecover performs a complete database recovery: it iterates through the
// log, undoing every record belonging to a transaction that never reached a
// COMMIT or ROLLBACK record, and stops at the CHECKPOINT record (or the end
// of the log if none exists).
func (rm *RecoveryManager) doRecover() error {
	finished := make(map[int]struct{})

	iter, err := rm.logManager.Iterator()
	if err != nil {
		return err
	}

	for iter.HasNext() {
		bytes, err := iter.Next()
		if err != nil {
			return err
		}
		record, err := CreateLogRecord(bytes)
		if err != nil {
			return err
		}

		if record.Op() == Checkpoint {
			return nil
		}
		if record.Op() == Commit || record.Op() == Rollback {
			finished[record.TxNumber()] = struct{}{}
			continue
		}
		if _, ok := finished[record.TxNumber()]; !ok {
			if err := record.Undo(rm.tx); err != nil {
				return err
			}
		}
	}
	return nil
}
