package transaction

import (
	"slices"

	"txdb/buffer"
	"txdb/file"
)

// BufferList manages the buffers pinned by a transaction. A block may be
// pinned several times; each pin is recorded and released separately.
type BufferList struct {
	buffers       map[file.Block]*buffer.Buffer
	pins          []file.Block
	bufferManager *buffer.Manager
}

func NewBufferList(bufferManager *buffer.Manager) *BufferList {
	return &BufferList{
		buffers:       make(map[file.Block]*buffer.Buffer),
		pins:          make([]file.Block, 0),
		bufferManager: bufferManager,
	}
}

// GetBuffer returns the buffer pinned to the block, or nil if the
// transaction has not pinned it.
func (bl *BufferList) GetBuffer(block file.Block) *buffer.Buffer {
	return bl.buffers[block]
}

func (bl *BufferList) Pin(block file.Block) error {
	buf, err := bl.bufferManager.Pin(block)
	if err != nil {
		return err
	}

	bl.add(buf)
	return nil
}

// PinNew appends a new block to the file and pins it.
func (bl *BufferList) PinNew(filename string, formatter buffer.PageFormatter) (file.Block, error) {
	buf, err := bl.bufferManager.PinNew(filename, formatter)
	if err != nil {
		return file.Block{}, err
	}

	bl.add(buf)
	return buf.Block(), nil
}

func (bl *BufferList) Unpin(block file.Block) {
	buf := bl.buffers[block]
	if buf == nil {
		return
	}

	bl.bufferManager.Unpin(buf)
	if i := slices.Index(bl.pins, block); i >= 0 {
		bl.pins = slices.Delete(bl.pins, i, i+1)
	}
	if !slices.Contains(bl.pins, block) {
		delete(bl.buffers, block)
	}
}

func (bl *BufferList) UnpinAll() {
	for _, block := range bl.pins {
		buf := bl.buffers[block]
		if buf == nil {
			continue
		}
		bl.bufferManager.Unpin(buf)
	}

	clear(bl.buffers)
	bl.pins = bl.pins[:0]
}

func (bl *BufferList) add(buf *buffer.Buffer) {
	bl.buffers[buf.Block()] = buf
	bl.pins = append(bl.pins, buf.Block())
}
