package buffer

import (
	"sync"

	"txdb/file"
	"txdb/log"
)

// BasicManager manages a fixed pool of buffers without ever waiting.
// Pin and PinNew return a nil buffer when every buffer is pinned.
type BasicManager struct {
	mu         sync.Mutex
	bufferPool []*Buffer
	available  int32
}

func NewBasicManager(fileManager *file.Manager, logManager *log.Manager, numBufs int32) *BasicManager {
	m := &BasicManager{
		bufferPool: make([]*Buffer, numBufs),
		available:  numBufs,
	}

	for i := int32(0); i < numBufs; i++ {
		m.bufferPool[i] = NewBuffer(fileManager, logManager)
	}

	return m
}

// Available returns the number of available (unpinned) buffers.
func (m *BasicManager) Available() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// FlushAll flushes all dirty buffers modified by the specified transaction.
func (m *BasicManager) FlushAll(txNum int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, buffer := range m.bufferPool {
		if buffer.ModifyingTx() == txNum {
			if err := buffer.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unpin releases one pin on the buffer.
func (m *BasicManager) Unpin(buf *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf.unpin()
	if !buf.IsPinned() {
		m.available++
	}
}

// Pin pins a buffer to the specified block. It returns nil if no buffer is available.
func (m *BasicManager) Pin(block file.Block) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// First, try to find a buffer already assigned to this block.
	buf := m.findExistingBuffer(block)

	if buf == nil {
		// If no existing buffer, try to find a free one to replace.
		buf = m.chooseUnpinnedBuffer()
		if buf == nil {
			return nil, nil // No buffers available (all are pinned).
		}
		if err := buf.assignToBlock(block); err != nil {
			return nil, err
		}
	}

	m.pin(buf)
	return buf, nil
}

// PinNew appends a new block to the file, formats it and pins a buffer to it.
// It returns nil if no buffer is available.
func (m *BasicManager) PinNew(filename string, formatter PageFormatter) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := m.chooseUnpinnedBuffer()
	if buf == nil {
		return nil, nil
	}
	if err := buf.assignToNew(filename, formatter); err != nil {
		return nil, err
	}

	// Blocks past the end of a file read as zeroes, so the new block may
	// already be held by another buffer. That buffer takes the new contents.
	if other := m.findOtherBuffer(buf); other != nil {
		copy(other.contents.Buf(), buf.contents.Buf())
		buf.block = file.Block{}
		buf = other
	}

	m.pin(buf)
	return buf, nil
}

// pin must be called with the mutex lock already held.
func (m *BasicManager) pin(buf *Buffer) {
	// If the chosen buffer was not pinned, it is now becoming pinned.
	if !buf.IsPinned() {
		m.available--
	}
	buf.pin()
}

// findExistingBuffer searches the buffer pool for a buffer
// already allocated to the specified block.
// This method must be called with the mutex lock already held.
func (m *BasicManager) findExistingBuffer(block file.Block) *Buffer {
	for _, buf := range m.bufferPool {
		if !buf.Block().IsZero() && buf.Block() == block {
			return buf
		}
	}
	return nil
}

// findOtherBuffer returns a buffer other than buf assigned to the same block.
// This method must be called with the mutex lock already held.
func (m *BasicManager) findOtherBuffer(buf *Buffer) *Buffer {
	for _, other := range m.bufferPool {
		if other != buf && other.Block() == buf.Block() {
			return other
		}
	}
	return nil
}

// chooseUnpinnedBuffer finds an unpinned buffer in the pool.
// This simple version takes the first one it finds.
// This method must be called with the mutex lock already held.
func (m *BasicManager) chooseUnpinnedBuffer() *Buffer {
	for _, buf := range m.bufferPool {
		if !buf.IsPinned() {
			return buf
		}
	}
	return nil
}
