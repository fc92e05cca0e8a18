package record

import (
	"txdb/file"
	"txdb/transaction"
)

// Slot flags.
const (
	Empty int32 = iota
	InUse
)

// Page stores records in the slots of a block. Field writes record the
// writing transaction in the TxNumField of the slot, and field reads return
// the value as of the reading transaction's read view.
type Page struct {
	tx     *transaction.Transaction
	block  file.Block
	layout *Layout
}

// NewPage pins the block for the transaction.
func NewPage(tx *transaction.Transaction, block file.Block, layout *Layout) (*Page, error) {
	if err := tx.Pin(block); err != nil {
		return nil, err
	}
	return &Page{
		tx:     tx,
		block:  block,
		layout: layout,
	}, nil
}

// Close unpins the block.
func (p *Page) Close() {
	p.tx.Unpin(p.block)
}

func (p *Page) GetInt(slot int32, fieldName string) (int32, error) {
	return p.tx.NonblockingGetInt(p.block, p.fieldPos(slot, fieldName), p.txNumPos(slot))
}

func (p *Page) GetString(slot int32, fieldName string) (string, error) {
	return p.tx.NonblockingGetString(p.block, p.fieldPos(slot, fieldName), p.txNumPos(slot))
}

func (p *Page) SetInt(slot int32, fieldName string, value int32) error {
	return p.tx.MVCCSetInt(p.block, p.fieldPos(slot, fieldName), value, p.txNumPos(slot))
}

func (p *Page) SetString(slot int32, fieldName string, value string) error {
	return p.tx.MVCCSetString(p.block, p.fieldPos(slot, fieldName), value, p.txNumPos(slot))
}

// Delete marks the slot as empty.
func (p *Page) Delete(slot int32) error {
	return p.setFlag(slot, Empty)
}

// NextAfter returns the first used slot after the given one, or -1.
func (p *Page) NextAfter(slot int32) (int32, error) {
	return p.searchAfter(slot, InUse)
}

// InsertAfter marks the first empty slot after the given one as used and
// returns it, or returns -1 if the block is full.
func (p *Page) InsertAfter(slot int32) (int32, error) {
	newSlot, err := p.searchAfter(slot, Empty)
	if err != nil {
		return 0, err
	}
	if newSlot >= 0 {
		if err := p.setFlag(newSlot, InUse); err != nil {
			return 0, err
		}
	}
	return newSlot, nil
}

func (p *Page) Block() file.Block {
	return p.block
}

func (p *Page) setFlag(slot int32, flag int32) error {
	return p.tx.MVCCSetInt(p.block, p.offset(slot), flag, p.txNumPos(slot))
}

func (p *Page) searchAfter(slot int32, flag int32) (int32, error) {
	slot++
	for p.isValidSlot(slot) {
		value, err := p.tx.NonblockingGetInt(p.block, p.offset(slot), p.txNumPos(slot))
		if err != nil {
			return 0, err
		}
		if value == flag {
			return slot, nil
		}
		slot++
	}
	return -1, nil
}

func (p *Page) isValidSlot(slot int32) bool {
	return p.offset(slot+1) <= p.tx.BlockSize()
}

func (p *Page) fieldPos(slot int32, fieldName string) int32 {
	return p.offset(slot) + p.layout.Offset(fieldName)
}

func (p *Page) txNumPos(slot int32) int32 {
	return p.fieldPos(slot, TxNumField)
}

func (p *Page) offset(slot int32) int32 {
	return slot * p.layout.SlotSize()
}
