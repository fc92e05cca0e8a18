package buffer

import (
	"txdb/file"
	"txdb/log"
)

// Buffer wraps a page and records the status of the block it holds:
// how many clients pin it, which transaction last modified it and the
// LSN of the log record describing that change.
type Buffer struct {
	fileManager *file.Manager
	logManager  *log.Manager
	contents    *file.Page
	block       file.Block // zero value until the buffer is first assigned
	pins        int32
	modifiedBy  int32 // transaction number that made the change
	lsn         int32 // LSN of the most recent log record
}

func NewBuffer(fileManager *file.Manager, logManager *log.Manager) *Buffer {
	return &Buffer{
		fileManager: fileManager,
		logManager:  logManager,
		contents:    file.NewPage(fileManager.BlockSize()),
		modifiedBy:  -1,
		lsn:         -1,
	}
}

func (b *Buffer) Contents() *file.Page {
	return b.contents
}

// Block returns the block held by the buffer. It is the zero Block if the
// buffer was never assigned.
func (b *Buffer) Block() file.Block {
	return b.block
}

// SetModified marks the buffer as modified by txNum. A negative lsn means the
// change produced no log record, and the previous LSN is kept.
func (b *Buffer) SetModified(txNum, lsn int32) {
	b.modifiedBy = txNum
	if lsn >= 0 {
		b.lsn = lsn
	}
}

func (b *Buffer) IsPinned() bool {
	return b.pins > 0
}

func (b *Buffer) ModifyingTx() int32 {
	return b.modifiedBy
}

func (b *Buffer) LSN() int32 {
	return b.lsn
}

func (b *Buffer) assignToBlock(block file.Block) error {
	// Flush the buffer, so that any modifications to the previous block are preserved.
	if err := b.flush(); err != nil {
		return err
	}

	b.block = file.Block{}
	if err := b.fileManager.Read(block, b.contents); err != nil {
		return err
	}
	b.block = block
	b.pins = 0
	return nil
}

// assignToNew formats the page, appends it to the file as a new block and
// assigns the buffer to that block.
func (b *Buffer) assignToNew(filename string, formatter PageFormatter) error {
	if err := b.flush(); err != nil {
		return err
	}

	b.block = file.Block{}
	b.contents.Clear()
	formatter.Format(b.contents)
	block, err := b.fileManager.Append(filename, b.contents)
	if err != nil {
		return err
	}
	b.block = block
	b.pins = 0
	return nil
}

// flush writes the page to disk if it is dirty. The log is flushed up to the
// buffer's LSN first.
func (b *Buffer) flush() error {
	if b.modifiedBy >= 0 {
		if err := b.logManager.Flush(b.lsn); err != nil {
			return err
		}
		if err := b.fileManager.Write(b.block, b.contents); err != nil {
			return err
		}
		b.modifiedBy = -1
	}
	return nil
}

func (b *Buffer) pin() {
	b.pins++
}

func (b *Buffer) unpin() {
	b.pins--
}
