package btree

import (
	"fmt"
	"github.com/emberdb/emberdb/file"
	"github.com/emberdb/emberdb/index"
	"github.com/emberdb/emberdb/index/common"
	"github.com/emberdb/emberdb/record"
	"github.com/emberdb/emberdb/tx"
	"github.com/emberdb/emberdb/types"
	"github.com/sirupsen/logrus"
	"math"
	"time"
)

var _ index.Index = (*Index)(nil)

const (
	leafSuffix      = "_leaf"
	directorySuffix = "_directory"
)

type Index struct {
	transaction     *tx.Transaction
	directoryLayout *record.Layout
	leafLayout      *record.Layout
	leafTable       string
	leaf            *Leaf
	rootBlock       *file.BlockId
	log             *logrus.Logger
}

// SetLogger overrides the logger used for split/root-growth diagnostics.
// Passing nil restores the standard logger.
func (idx *Index) SetLogger(logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	idx.log = logger
}

// NewIndex opens a b-tree index for the specified index.
// The method determines the appropriate files for the leaf
// and directory records, creating them if they do not exist.
func NewIndex(transaction *tx.Transaction, indexName string, leafLayout *record.Layout) (index.Index, error) {
	idx := &Index{
		transaction: transaction,
		leafTable:   indexName + leafSuffix,
		leafLayout:  leafLayout,
		leaf:        nil,
		log:         logrus.StandardLogger(),
	}

	leafTableSize, err := idx.transaction.Size(idx.leafTable)
	if err != nil {
		return nil, fmt.Errorf("open b-tree index %s: size leaf table: %w", indexName, err)
	}

	// Deal with the leaves
	if leafTableSize == 0 {
		block, err := idx.transaction.Append(idx.leafTable)
		if err != nil {
			return nil, fmt.Errorf("open b-tree index %s: append leaf block: %w", indexName, err)
		}
		node, err := NewPage(idx.transaction, block, leafLayout)
		if err != nil {
			return nil, fmt.Errorf("open b-tree index %s: open leaf block: %w", indexName, err)
		}
		if err := node.format(block, -1); err != nil {
			return nil, fmt.Errorf("open b-tree index %s: format leaf block: %w", indexName, err)
		}
	}

	// Deal with the directory
	directorySchema := record.NewSchema()
	directorySchema.Add(common.BlockField, leafLayout.Schema())
	directorySchema.Add(common.DataValueField, leafLayout.Schema())

	directoryTable := indexName + directorySuffix
	idx.directoryLayout = record.NewLayout(directorySchema)

	idx.rootBlock = file.NewBlockId(directoryTable, 0)

	directoryTableSize, err := idx.transaction.Size(directoryTable)
	if err != nil {
		return nil, fmt.Errorf("open b-tree index %s: size directory table: %w", indexName, err)
	}
	if directoryTableSize == 0 {
		// Create a new root block
		_, err := idx.transaction.Append(directoryTable)
		if err != nil {
			return nil, fmt.Errorf("open b-tree index %s: append root block: %w", indexName, err)
		}
		node, err := NewPage(idx.transaction, idx.rootBlock, idx.directoryLayout)
		if err != nil {
			return nil, fmt.Errorf("open b-tree index %s: open root block: %w", indexName, err)
		}
		if err := node.format(idx.rootBlock, 0); err != nil {
			return nil, fmt.Errorf("open b-tree index %s: format root block: %w", indexName, err)
		}

		// insert initial directory entry, shaped to match the data value's declared field type
		fieldType := directorySchema.Type(common.DataValueField)
		switch fieldType {
		case types.Integer:
			err = node.InsertDirectory(0, 0, 0)
		case types.Varchar:
			err = node.InsertDirectory(0, "", 0)
		case types.Boolean:
			err = node.InsertDirectory(0, false, 0)
		case types.Long:
			err = node.InsertDirectory(0, int64(0), 0)
		case types.Short:
			err = node.InsertDirectory(0, int16(0), 0)
		case types.Date:
			err = node.InsertDirectory(0, time.Time{}, 0)
		default:
			err = fmt.Errorf("unsupported type: %s", fieldType)
		}
		if err != nil {
			return nil, fmt.Errorf("open b-tree index %s: seed root entry: %w", indexName, err)
		}
		node.Close()
	}
	return idx, nil
}

// BeforeFirst traverses the directory to find the leaf block
// corresponding to the specified search key.
// The method then opens a page for that leaf block, and
// positions the page before the first record (if any)
// having that search key.
// The leaf page is left open for use by the methods
// Next and GetDataRecordID.
func (idx *Index) BeforeFirst(searchKey interface{}) error {
	idx.Close()
	root, err := NewDirectory(idx.transaction, idx.rootBlock, idx.directoryLayout)
	if err != nil {
		return fmt.Errorf("position b-tree before first: %w", err)
	}
	blockNumber, err := root.Search(searchKey)
	if err != nil {
		return fmt.Errorf("position b-tree before first: %w", err)
	}
	root.Close()

	leafBlock := file.NewBlockId(idx.leafTable, blockNumber)
	idx.leaf, err = NewLeaf(idx.transaction, leafBlock, idx.leafLayout, searchKey)
	if err != nil {
		return fmt.Errorf("position b-tree before first: %w", err)
	}
	return nil
}

// Next moves to the next record having the previously specified search key.
// Returns false if there are no more such records.
func (idx *Index) Next() (bool, error) {
	return idx.leaf.Next()
}

// GetDataRecordID returns the record ID of the current leaf record.
func (idx *Index) GetDataRecordID() (*record.ID, error) {
	return idx.leaf.GetDataRID()
}

// Insert inserts the specified record in the index.
// The method first traverses the directory to find the
// appropriate leaf page; then it inserts the record
// into the leaf.
// If the insertion causes the leaf to split, the method
// calls insert on the root, passing it the directory
// entry of the new leaf page.
// If the root node splits, then makeNewRoot is called.
func (idx *Index) Insert(dataVal any, dataRID *record.ID) error {
	if err := idx.BeforeFirst(dataVal); err != nil {
		return fmt.Errorf("insert into b-tree index: %w", err)
	}
	// Insert the record into the leaf
	directoryEntry, err := idx.leaf.Insert(dataRID)
	idx.leaf.Close()

	if err != nil {
		return fmt.Errorf("insert into b-tree index: %w", err)
	}
	// If the leaf did not split, we are done
	if directoryEntry == nil {
		return nil
	}
	idx.log.WithFields(logrus.Fields{"component": "btree", "leaf_table": idx.leafTable, "new_entry": directoryEntry.String()}).
		Debug("leaf page split, propagating new directory entry")

	// Leaf split, insert the new directory entry.
	root, err := NewDirectory(idx.transaction, idx.rootBlock, idx.directoryLayout)
	if err != nil {
		return fmt.Errorf("insert into b-tree index: reopen root after leaf split: %w", err)
	}

	newDirectoryEntry, err := root.Insert(directoryEntry)
	if err != nil {
		return fmt.Errorf("insert into b-tree index: propagate split entry: %w", err)
	}

	// If the root did not split, we are done.
	// Else, create a new root.
	if newDirectoryEntry != nil {
		idx.log.WithFields(logrus.Fields{"component": "btree", "root_block": idx.rootBlock.String()}).
			Debug("root directory block split, growing tree by one level")
		if err := root.MakeNewRoot(newDirectoryEntry); err != nil {
			return fmt.Errorf("insert into b-tree index: make new root: %w", err)
		}
		return nil
	}
	root.Close()
	return nil
}

// Delete deletes the specified index record.
// The method first traverses the directory to find the
// leaf page containing the record, then it deletes the
// record from the page.
func (idx *Index) Delete(dataVal any, dataRID *record.ID) error {
	if err := idx.BeforeFirst(dataVal); err != nil {
		return fmt.Errorf("delete from b-tree index: %w", err)
	}

	if err := idx.leaf.Delete(dataRID); err != nil {
		return fmt.Errorf("delete from b-tree index: %w", err)
	}

	idx.leaf.Close()
	return nil
}

// Close closes the index by closing the current leaf page, if necessary.
func (idx *Index) Close() {
	if idx.leaf != nil {
		idx.leaf.Close()
	}
}

// SearchCost returns the estimated number of block accesses
// required to find all the index records having a particular
// search key.
func (idx *Index) SearchCost(numBlocks, recordsPerBlock int) int {
	return 1 + int(math.Log(float64(numBlocks))/math.Log(float64(recordsPerBlock)))
}
