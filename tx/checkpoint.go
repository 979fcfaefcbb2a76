package tx

import (
	"github.com/emberdb/emberdb/file"
	"github.com/emberdb/emberdb/log"
	"github.com/emberdb/emberdb/types"
)

type CheckpointRecord struct {
	LogRecord
}

// NewCheckpointRecord creates a new CheckpointRecord. A checkpoint record
// carries no other data besides its tag.
func NewCheckpointRecord() (*CheckpointRecord, error) {
	return &CheckpointRecord{}, nil
}

// Op returns the type of the log record.
func (r *CheckpointRecord) Op() LogRecordType {
	return Checkpoint
}

// TxNumber returns a dummy value, since a checkpoint record has no
// associated transaction.
func (r *CheckpointRecord) TxNumber() int {
	return -1
}

// Undo does nothing. CheckpointRecord does not change any data.
func (r *CheckpointRecord) Undo(_ *Transaction) error {
	return nil
}

// String returns a string representation of the log record.
func (r *CheckpointRecord) String() string {
	return "<CHECKPOINT>"
}

// WriteCheckpointToLog writes a checkpoint record to the log. This log
// record contains only the Checkpoint operator.
// The method returns the LSN of the new log record.
func WriteCheckpointToLog(logManager *log.Manager) (int, error) {
	record := make([]byte, types.IntSize)

	page := file.NewPageFromBytes(record)
	page.SetInt(0, int32(Checkpoint))

	lsn, err := logManager.Append(record)
	return int(lsn), err
}
