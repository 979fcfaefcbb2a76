package file

import "fmt"

// BlockId identifies a fixed-size block within a named file on disk.
type BlockId struct {
	File        string
	BlockNumber int
}

// NewBlockId returns a BlockId for the given file and block number.
func NewBlockId(filename string, blockNumber int) *BlockId {
	return &BlockId{
		File:        filename,
		BlockNumber: blockNumber,
	}
}

// Filename returns the name of the file this block belongs to.
func (b *BlockId) Filename() string {
	return b.File
}

// Number returns this block's position within its file.
func (b *BlockId) Number() int {
	return b.BlockNumber
}

func (b *BlockId) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.File, b.BlockNumber)
}

func (b *BlockId) Equals(other *BlockId) bool {
	return b.File == other.File && b.BlockNumber == other.BlockNumber
}
