package log

import (
	"io"

	"txdb/file"
)

// Iterator reads log records from the log file in reverse order,
// from most recent to oldest.
type Iterator struct {
	fileManager *file.Manager
	block       file.Block
	page        *file.Page
	currentPos  int32 // position of the next back-pointer to follow; 0 when the block is exhausted
}

// NewIterator creates a new iterator positioned at the most recent record of
// the given block.
func NewIterator(fileManager *file.Manager, block file.Block) (*Iterator, error) {
	i := &Iterator{
		fileManager: fileManager,
		page:        file.NewPage(fileManager.BlockSize()),
	}

	if err := i.moveToBlock(block); err != nil {
		return nil, err
	}
	if err := i.skipEmptyBlocks(); err != nil {
		return nil, err
	}

	return i, nil
}

// HasNext reports whether there are more records to read.
func (i *Iterator) HasNext() bool {
	return i.currentPos > 0
}

// Next returns the next record, moving to the previous block when the
// current one is exhausted. It returns io.EOF when there are no more records.
func (i *Iterator) Next() (*Record, error) {
	if !i.HasNext() {
		return nil, io.EOF
	}

	bp := i.currentPos
	prev, err := i.page.ReadInt32At(bp)
	if err != nil {
		return nil, err
	}

	start := prev + file.Int32Size
	if start > bp {
		return nil, io.ErrUnexpectedEOF
	}
	rec := make([]byte, bp-start)
	copy(rec, i.page.Buf()[start:bp])

	i.currentPos = prev
	if err := i.skipEmptyBlocks(); err != nil {
		return nil, err
	}

	return newRecord(rec), nil
}

// skipEmptyBlocks moves backwards until a block with unread records is
// found or the first block is reached.
func (i *Iterator) skipEmptyBlocks() error {
	for i.currentPos == 0 && i.block.Number() > 0 {
		if err := i.moveToBlock(file.NewBlock(i.block.Filename(), i.block.Number()-1)); err != nil {
			return err
		}
	}
	return nil
}

// moveToBlock loads a block and positions the iterator at its last record.
func (i *Iterator) moveToBlock(block file.Block) error {
	if err := i.fileManager.Read(block, i.page); err != nil {
		return err
	}

	last, err := i.page.ReadInt32At(lastPos)
	if err != nil {
		return err
	}
	i.block = block
	i.currentPos = last

	return nil
}
