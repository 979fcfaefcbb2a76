package btree

import "fmt"

// DirectoryEntry is the (key, child block) pair stored in a B-tree directory
// node: it records that the given data value is the smallest key reachable
// through the given child block.
type DirectoryEntry struct {
	dataValue   any
	blockNumber int
}

// NewDirectoryEntry creates a new DirectoryEntry with the specified data value and block number.
func NewDirectoryEntry(dataValue any, blockNumber int) *DirectoryEntry {
	return &DirectoryEntry{dataValue, blockNumber}
}

// DataValue returns the data value of this directory entry.
func (de *DirectoryEntry) DataValue() any {
	return de.dataValue
}

// BlockNumber returns the block number of this directory entry.
func (de *DirectoryEntry) BlockNumber() int {
	return de.blockNumber
}

// String renders the entry for log lines emitted while a split propagates up
// the tree, matching the sibling locator types record.ID and file.BlockId,
// which both carry a String method for the same purpose.
func (de *DirectoryEntry) String() string {
	return fmt.Sprintf("[value %v, block %d]", de.dataValue, de.blockNumber)
}
