package tx

import (
	"fmt"
	"github.com/emberdb/emberdb/file"
	"github.com/emberdb/emberdb/log"
	"github.com/emberdb/emberdb/types"
)

type SetBoolRecord struct {
	LogRecord
	txNum  int
	offset int
	value  bool
	block  *file.BlockId
}

func NewSetBoolRecord(page *file.Page) (*SetBoolRecord, error) {
	operationPos := 0
	txNumPos := operationPos + types.IntSize
	txNum := int(page.GetInt(txNumPos))

	fileNamePos := txNumPos + types.IntSize
	fileName, err := page.GetString(fileNamePos)
	if err != nil {
		return nil, err
	}

	blockNumPos := fileNamePos + file.MaxLength(len(fileName))
	blockNum := int(page.GetInt(blockNumPos))
	block := &file.BlockId{File: fileName, BlockNumber: blockNum}

	offsetPos := blockNumPos + types.IntSize
	offset := int(page.GetInt(offsetPos))

	valuePos := offsetPos + types.IntSize
	val := page.GetBool(valuePos)

	return &SetBoolRecord{txNum: txNum, offset: offset, value: val, block: block}, nil
}

func (r *SetBoolRecord) Op() LogRecordType {
	return SetBool
}

func (r *SetBoolRecord) TxNumber() int {
	return r.txNum
}

func (r *SetBoolRecord) String() string {
	return fmt.Sprintf("<SETBOOL %d %s %d %t>", r.txNum, r.block, r.offset, r.value)
}

func (r *SetBoolRecord) Undo(tx *Transaction) error {
	if err := tx.Pin(r.block); err != nil {
		return err
	}
	defer tx.Unpin(r.block)
	return tx.SetBool(r.block, r.offset, r.value, false)
}

func WriteSetBoolToLog(logManager *log.Manager, txNum int, block *file.BlockId, offset int, val bool) (int, error) {
	operationPos := 0
	txNumPos := operationPos + types.IntSize
	fileNamePos := txNumPos + types.IntSize
	fileName := block.Filename()

	blockNumPos := fileNamePos + file.MaxLength(len(fileName))
	blockNum := block.Number()

	offsetPos := blockNumPos + types.IntSize
	valuePos := offsetPos + types.IntSize

	// 1 byte for bool
	recordLen := valuePos + 1

	recordBytes := make([]byte, recordLen)
	page := file.NewPageFromBytes(recordBytes)

	page.SetInt(operationPos, int32(SetBool))
	page.SetInt(txNumPos, int32(txNum))
	if err := page.SetString(fileNamePos, fileName); err != nil {
		return -1, err
	}
	page.SetInt(blockNumPos, int32(blockNum))
	page.SetInt(offsetPos, int32(offset))
	page.SetBool(valuePos, val)

	lsn, err := logManager.Append(recordBytes)
	return int(lsn), err
}
