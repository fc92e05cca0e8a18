package record

import (
	"fmt"

	"txdb/file"
	"txdb/transaction"
)

// TableScan iterates over the records of a table file, block by block,
// and inserts new records, appending blocks as needed.
type TableScan struct {
	tx          *transaction.Transaction
	layout      *Layout
	formatter   *Formatter
	recordPage  *Page
	filename    string
	currentSlot int32
}

func NewTableScan(tx *transaction.Transaction, tableName string, layout *Layout) (*TableScan, error) {
	fileName := fmt.Sprintf("%s.tbl", tableName)
	ts := &TableScan{
		tx:        tx,
		layout:    layout,
		formatter: NewFormatter(layout),
		filename:  fileName,
	}

	size, err := tx.Size(fileName)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		if err := ts.moveToNewBlock(); err != nil {
			return nil, err
		}
	} else {
		if err := ts.moveToBlock(0); err != nil {
			return nil, err
		}
	}

	return ts, nil
}

func (ts *TableScan) Close() {
	if ts.recordPage != nil {
		ts.recordPage.Close()
		ts.recordPage = nil
	}
}

func (ts *TableScan) BeforeFirst() error {
	return ts.moveToBlock(0)
}

// Next moves to the next record. It returns false when there are no more records.
func (ts *TableScan) Next() (bool, error) {
	slot, err := ts.recordPage.NextAfter(ts.currentSlot)
	if err != nil {
		return false, err
	}
	ts.currentSlot = slot

	for ts.currentSlot < 0 {
		lastBlock, err := ts.atLastBlock()
		if err != nil {
			return false, err
		}
		if lastBlock {
			return false, nil
		}
		if err := ts.moveToBlock(ts.recordPage.Block().Number() + 1); err != nil {
			return false, err
		}
		if ts.currentSlot, err = ts.recordPage.NextAfter(ts.currentSlot); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (ts *TableScan) GetInt(fieldName string) (int32, error) {
	return ts.recordPage.GetInt(ts.currentSlot, fieldName)
}

func (ts *TableScan) GetString(fieldName string) (string, error) {
	return ts.recordPage.GetString(ts.currentSlot, fieldName)
}

func (ts *TableScan) HasField(fieldName string) bool {
	return ts.layout.Schema().HasField(fieldName)
}

func (ts *TableScan) SetInt(fieldName string, value int32) error {
	return ts.recordPage.SetInt(ts.currentSlot, fieldName, value)
}

func (ts *TableScan) SetString(fieldName string, value string) error {
	return ts.recordPage.SetString(ts.currentSlot, fieldName, value)
}

// Insert moves to a new empty record, appending a block if every block is full.
func (ts *TableScan) Insert() error {
	slot, err := ts.recordPage.InsertAfter(ts.currentSlot)
	if err != nil {
		return err
	}
	ts.currentSlot = slot

	for ts.currentSlot < 0 {
		lastBlock, err := ts.atLastBlock()
		if err != nil {
			return err
		}
		if lastBlock {
			if err := ts.moveToNewBlock(); err != nil {
				return err
			}
		} else {
			if err := ts.moveToBlock(ts.recordPage.Block().Number() + 1); err != nil {
				return err
			}
		}
		if ts.currentSlot, err = ts.recordPage.InsertAfter(ts.currentSlot); err != nil {
			return err
		}
	}

	return nil
}

func (ts *TableScan) Delete() error {
	return ts.recordPage.Delete(ts.currentSlot)
}

func (ts *TableScan) MoveToRID(rid RID) error {
	ts.Close()
	block := file.NewBlock(ts.filename, rid.blockNum)
	recordPage, err := NewPage(ts.tx, block, ts.layout)
	if err != nil {
		return err
	}

	ts.recordPage = recordPage
	ts.currentSlot = rid.slot
	return nil
}

func (ts *TableScan) GetRID() RID {
	return RID{
		blockNum: ts.recordPage.Block().Number(),
		slot:     ts.currentSlot,
	}
}

func (ts *TableScan) moveToBlock(blockNum int32) error {
	ts.Close()
	block := file.NewBlock(ts.filename, blockNum)
	recordPage, err := NewPage(ts.tx, block, ts.layout)
	if err != nil {
		return err
	}
	ts.recordPage = recordPage
	ts.currentSlot = -1
	return nil
}

func (ts *TableScan) moveToNewBlock() error {
	ts.Close()
	block, err := ts.tx.Append(ts.filename, ts.formatter)
	if err != nil {
		return err
	}

	recordPage, err := NewPage(ts.tx, block, ts.layout)
	if err != nil {
		return err
	}
	ts.recordPage = recordPage
	ts.currentSlot = -1
	return nil
}

func (ts *TableScan) atLastBlock() (bool, error) {
	size, err := ts.tx.Size(ts.filename)
	if err != nil {
		return false, err
	}
	return ts.recordPage.Block().Number() == size-1, nil
}

// RID identifies a record by block number and slot.
type RID struct {
	blockNum int32
	slot     int32
}

func NewRID(blockNum, slot int32) RID {
	return RID{blockNum: blockNum, slot: slot}
}

func (r RID) BlockNumber() int32 {
	return r.blockNum
}

func (r RID) Slot() int32 {
	return r.slot
}

func (r RID) String() string {
	return fmt.Sprintf("[%d, %d]", r.blockNum, r.slot)
}
