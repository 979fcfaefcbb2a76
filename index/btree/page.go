package btree

import (
	"fmt"
	"github.com/emberdb/emberdb/file"
	"github.com/emberdb/emberdb/index/common"
	"github.com/emberdb/emberdb/record"
	"github.com/emberdb/emberdb/tx"
	"github.com/emberdb/emberdb/types"
	"time"
)

type Page struct {
	tx         *tx.Transaction
	currentBlk *file.BlockId
	layout     *record.Layout
}

func NewPage(tx *tx.Transaction, currentBlk *file.BlockId, layout *record.Layout) (*Page, error) {
	if err := tx.Pin(currentBlk); err != nil {
		return nil, fmt.Errorf("pin b-tree block %s: %w", currentBlk.String(), err)
	}
	return &Page{
		tx:         tx,
		currentBlk: currentBlk,
		layout:     layout,
	}, nil
}

// FindSlotBefore calculates the position where the first record having
// the specified search key should be, then returns the position
// just before it.
//
// Records within a page are maintained in non-decreasing key order by
// Insert (it always shifts records up to keep the page sorted), so the
// leftmost slot whose value is >= searchKey can be found by binary search
// rather than a linear scan of every slot in the page. This is what gives
// the tree its namesake logarithmic search cost per level: a linear
// intra-page scan would make lookups cost O(page capacity) per level
// instead of O(log page capacity).
func (p *Page) FindSlotBefore(searchKey any) (int, error) {
	numberOfRecords, err := p.GetNumberOfRecords()
	if err != nil {
		return -1, fmt.Errorf("find slot before key: %w", err)
	}

	lo, hi := 0, numberOfRecords
	for lo < hi {
		mid := (lo + hi) / 2
		dataVal, err := p.GetDataVal(mid)
		if err != nil {
			return -1, fmt.Errorf("find slot before key: read value at slot %d: %w", mid, err)
		}
		if types.CompareSupportedTypes(dataVal, searchKey, types.GE) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	// lo is now the leftmost slot with value >= searchKey (or
	// numberOfRecords if every value is smaller); the caller wants the
	// position just before it.
	return lo - 1, nil
}

// Close closes the page by unpinning its buffer.
func (p *Page) Close() {
	if p.currentBlk != nil {
		p.tx.Unpin(p.currentBlk)
		p.currentBlk = nil
	}
}

// IsFull returns true if the block is full.
func (p *Page) IsFull() (bool, error) {
	numberOfRecords, err := p.GetNumberOfRecords()
	if err != nil {
		return false, fmt.Errorf("check page fullness: %w", err)
	}
	return p.slotPosition(numberOfRecords+1) >= p.tx.BlockSize(), nil
}

// Split splits the page at the specified position.
// A new page is created, and the records of the page
// starting at the split position are transferred to the new page.
func (p *Page) Split(splitPos, flag int) (*file.BlockId, error) {
	newBlk, err := p.AppendNew(flag)
	if err != nil {
		return nil, fmt.Errorf("split page: %w", err)
	}
	newPage, err := NewPage(p.tx, newBlk, p.layout)
	if err != nil {
		return nil, fmt.Errorf("split page: open new block: %w", err)
	}
	if err := p.transferRecords(splitPos, newPage); err != nil {
		return nil, fmt.Errorf("split page: transfer records from slot %d: %w", splitPos, err)
	}
	if err := newPage.SetFlag(flag); err != nil {
		return nil, fmt.Errorf("split page: set new block flag: %w", err)
	}
	newPage.Close()
	return newBlk, nil
}

// GetDataVal returns the data value of the record at the specified slot.
func (p *Page) GetDataVal(slot int) (any, error) {
	return p.getVal(slot, common.DataValueField)
}

// GetFlag returns the page's flag field.
func (p *Page) GetFlag() (int, error) {
	flag, err := p.tx.GetInt(p.currentBlk, 0)
	if err != nil {
		return -1, fmt.Errorf("read page flag: %w", err)
	}
	return flag, nil
}

// SetFlag sets the page's flag field to the specified value.
func (p *Page) SetFlag(val int) error {
	if err := p.tx.SetInt(p.currentBlk, 0, val, true); err != nil {
		return fmt.Errorf("set page flag: %w", err)
	}
	return nil
}

// AppendNew appends a new block to the end of the specified b-tree file,
// having the specified flag value.
func (p *Page) AppendNew(flag int) (*file.BlockId, error) {
	blk, err := p.tx.Append(p.currentBlk.Filename())
	if err != nil {
		return nil, fmt.Errorf("append new b-tree block: %w", err)
	}
	if err := p.tx.Pin(blk); err != nil {
		return nil, fmt.Errorf("pin new b-tree block %s: %w", blk.String(), err)
	}
	if err := p.format(blk, flag); err != nil {
		return nil, fmt.Errorf("format new b-tree block %s: %w", blk.String(), err)
	}
	return blk, nil
}

func (p *Page) format(blk *file.BlockId, flag int) error {
	if err := p.tx.SetInt(blk, 0, flag, false); err != nil {
		return fmt.Errorf("write flag: %w", err)
	}
	if err := p.tx.SetInt(blk, types.IntSize, 0, false); err != nil {
		return fmt.Errorf("write record count: %w", err)
	}
	recSize := p.layout.SlotSize()
	for pos := 2 * types.IntSize; pos+recSize <= p.tx.BlockSize(); pos += recSize {
		if err := p.makeDefaultRecord(blk, pos); err != nil {
			return fmt.Errorf("write default record at offset %d: %w", pos, err)
		}
	}
	return nil
}

// makeDefaultRecord zero-fills one slot's worth of fields at the given block
// offset; every field type the schema can declare (Integer/Varchar/Boolean/
// Long/Short/Date) needs an explicit zero value here since a newly formatted
// block is read before anything is ever written into its slots.
func (p *Page) makeDefaultRecord(blk *file.BlockId, pos int) error {
	schema := p.layout.Schema()
	for _, field := range schema.Fields() {
		offset := p.layout.Offset(field)
		switch schema.Type(field) {
		case types.Integer:
			if err := p.tx.SetInt(blk, pos+offset, 0, false); err != nil {
				return err
			}
		case types.Varchar:
			if err := p.tx.SetString(blk, pos+offset, "", false); err != nil {
				return err
			}
		case types.Boolean:
			if err := p.tx.SetBool(blk, pos+offset, false, false); err != nil {
				return err
			}
		case types.Date:
			if err := p.tx.SetDate(blk, pos+offset, time.Time{}, false); err != nil {
				return err
			}
		case types.Long:
			if err := p.tx.SetLong(blk, pos+offset, 0, false); err != nil {
				return err
			}
		case types.Short:
			if err := p.tx.SetShort(blk, pos+offset, 0, false); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported type: %s", schema.Type(field))
		}
	}
	return nil
}

// GetChildNumber returns the block number stored in the index record at the specified slot.
func (p *Page) GetChildNumber(slot int) (int, error) {
	return p.getInt(slot, common.BlockField)
}

func (p *Page) getInt(slot int, fieldName string) (int, error) {
	position := p.fieldPosition(slot, fieldName)
	return p.tx.GetInt(p.currentBlk, position)
}

func (p *Page) setInt(slot int, fieldName string, value int) error {
	position := p.fieldPosition(slot, fieldName)
	return p.tx.SetInt(p.currentBlk, position, value, true)
}

// InsertDirectory inserts a directory entry at the specified slot.
func (p *Page) InsertDirectory(slot int, value any, blockNumber int) error {
	if err := p.insert(slot); err != nil {
		return fmt.Errorf("insert directory entry at slot %d: %w", slot, err)
	}
	if err := p.setVal(slot, common.DataValueField, value); err != nil {
		return fmt.Errorf("insert directory entry at slot %d: %w", slot, err)
	}
	if err := p.setInt(slot, common.BlockField, blockNumber); err != nil {
		return fmt.Errorf("insert directory entry at slot %d: %w", slot, err)
	}
	return nil
}

// GetDataRecordID returns the record ID stored in the specified leaf index record.
func (p *Page) getDataRID(slot int) (*record.ID, error) {
	blockNumber, err := p.getInt(slot, common.BlockField)
	if err != nil {
		return nil, fmt.Errorf("read record id at slot %d: %w", slot, err)
	}
	id, err := p.getInt(slot, common.IDField)
	if err != nil {
		return nil, fmt.Errorf("read record id at slot %d: %w", slot, err)
	}
	return record.NewID(blockNumber, id), nil
}

// InsertLeaf inserts a leaf entry at the specified slot.
func (p *Page) InsertLeaf(slot int, value any, rid *record.ID) error {
	if err := p.insert(slot); err != nil {
		return fmt.Errorf("insert leaf entry at slot %d: %w", slot, err)
	}
	if err := p.setVal(slot, common.DataValueField, value); err != nil {
		return fmt.Errorf("insert leaf entry at slot %d: %w", slot, err)
	}
	if err := p.setInt(slot, common.BlockField, rid.BlockNumber()); err != nil {
		return fmt.Errorf("insert leaf entry at slot %d: %w", slot, err)
	}
	if err := p.setInt(slot, common.IDField, rid.Slot()); err != nil {
		return fmt.Errorf("insert leaf entry at slot %d: %w", slot, err)
	}
	return nil
}

// GetNumberOfRecords returns the number of index records in this page.
func (p *Page) GetNumberOfRecords() (int, error) {
	numRecs, err := p.tx.GetInt(p.currentBlk, types.IntSize)
	if err != nil {
		return -1, fmt.Errorf("read record count: %w", err)
	}
	return numRecs, nil
}

func (p *Page) transferRecords(slot int, destination *Page) error {
	destSlot := 0
	numberOfRecords, err := p.GetNumberOfRecords()
	if err != nil {
		return err
	}

	for slot < numberOfRecords {
		if err := destination.insert(destSlot); err != nil {
			return fmt.Errorf("insert destination slot %d: %w", destSlot, err)
		}
		schema := p.layout.Schema()
		for _, field := range schema.Fields() {
			val, err := p.getVal(slot, field)
			if err != nil {
				return fmt.Errorf("read field %q from slot %d: %w", field, slot, err)
			}
			if err := destination.setVal(destSlot, field, val); err != nil {
				return fmt.Errorf("write field %q to slot %d: %w", field, destSlot, err)
			}
		}
		if err := p.delete(slot); err != nil {
			return fmt.Errorf("delete transferred slot %d: %w", slot, err)
		}
		destSlot++

		// Update number of records after deletion
		numberOfRecords, err = p.GetNumberOfRecords()
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Page) fieldPosition(slot int, fieldName string) int {
	return p.slotPosition(slot) + p.layout.Offset(fieldName)
}

// Helper methods for slot calculations
func (p *Page) slotPosition(slot int) int {
	slotSize := p.layout.SlotSize()
	return types.IntSize*2 + slot*slotSize
}

func (p *Page) getVal(slot int, fieldName string) (any, error) {
	pos := p.fieldPosition(slot, fieldName)
	switch p.layout.Schema().Type(fieldName) {
	case types.Integer:
		return p.tx.GetInt(p.currentBlk, pos)
	case types.Varchar:
		return p.tx.GetString(p.currentBlk, pos)
	case types.Boolean:
		return p.tx.GetBool(p.currentBlk, pos)
	case types.Date:
		return p.tx.GetDate(p.currentBlk, pos)
	case types.Long:
		return p.tx.GetLong(p.currentBlk, pos)
	case types.Short:
		return p.tx.GetShort(p.currentBlk, pos)
	default:
		return nil, fmt.Errorf("unsupported type: %s", p.layout.Schema().Type(fieldName))
	}
}

// setVal writes val into the given field, which must already carry the Go
// type that the field's schema type maps to (int/string/bool/time.Time/
// int64/int16); a mismatched val is a caller bug, not a storage-layer error,
// so it is reported the same way table.Scan.SetVal reports it rather than
// panicking on a failed type assertion.
func (p *Page) setVal(slot int, fieldName string, val any) error {
	pos := p.fieldPosition(slot, fieldName)
	fieldType := p.layout.Schema().Type(fieldName)
	switch fieldType {
	case types.Integer:
		v, ok := val.(int)
		if !ok {
			return fmt.Errorf("field %q: expected %s, got %T", fieldName, fieldType, val)
		}
		return p.tx.SetInt(p.currentBlk, pos, v, true)
	case types.Varchar:
		v, ok := val.(string)
		if !ok {
			return fmt.Errorf("field %q: expected %s, got %T", fieldName, fieldType, val)
		}
		return p.tx.SetString(p.currentBlk, pos, v, true)
	case types.Boolean:
		v, ok := val.(bool)
		if !ok {
			return fmt.Errorf("field %q: expected %s, got %T", fieldName, fieldType, val)
		}
		return p.tx.SetBool(p.currentBlk, pos, v, true)
	case types.Date:
		v, ok := val.(time.Time)
		if !ok {
			return fmt.Errorf("field %q: expected %s, got %T", fieldName, fieldType, val)
		}
		return p.tx.SetDate(p.currentBlk, pos, v, true)
	case types.Long:
		v, ok := val.(int64)
		if !ok {
			return fmt.Errorf("field %q: expected %s, got %T", fieldName, fieldType, val)
		}
		return p.tx.SetLong(p.currentBlk, pos, v, true)
	case types.Short:
		v, ok := val.(int16)
		if !ok {
			return fmt.Errorf("field %q: expected %s, got %T", fieldName, fieldType, val)
		}
		return p.tx.SetShort(p.currentBlk, pos, v, true)
	default:
		return fmt.Errorf("unsupported type: %s", fieldType)
	}
}

func (p *Page) insert(slot int) error {
	numRecs, err := p.GetNumberOfRecords()
	if err != nil {
		return err
	}
	for i := numRecs; i > slot; i-- {
		if err := p.copyRecord(i-1, i); err != nil {
			return fmt.Errorf("shift slot %d to %d: %w", i-1, i, err)
		}
	}
	if err := p.setNumberOfRecords(numRecs + 1); err != nil {
		return err
	}
	return nil
}

// Delete deletes the index record at the specified slot.
func (p *Page) delete(slot int) error {
	numRecs, err := p.GetNumberOfRecords()
	if err != nil {
		return err
	}
	for i := slot + 1; i < numRecs; i++ {
		if err := p.copyRecord(i, i-1); err != nil {
			return fmt.Errorf("shift slot %d to %d: %w", i, i-1, err)
		}
	}
	if err := p.setNumberOfRecords(numRecs - 1); err != nil {
		return err
	}
	return nil
}

func (p *Page) setNumberOfRecords(n int) error {
	if err := p.tx.SetInt(p.currentBlk, types.IntSize, n, true); err != nil {
		return fmt.Errorf("write record count: %w", err)
	}
	return nil
}

func (p *Page) copyRecord(from, to int) error {
	schema := p.layout.Schema()
	for _, field := range schema.Fields() {
		val, err := p.getVal(from, field)
		if err != nil {
			return err
		}
		if err := p.setVal(to, field, val); err != nil {
			return err
		}
	}
	return nil
}
