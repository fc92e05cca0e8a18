package transaction

import (
	"github.com/pkg/errors"

	"txdb/file"
	"txdb/log"
)

// NonblockingGetInt returns the int at offset of the block as seen by the
// transaction's read view. lastTxOffset is the offset of the field holding
// the number of the last transaction that wrote the record. The shared lock
// on the block is only held while the last writer is read.
func (tx *Transaction) NonblockingGetInt(block file.Block, offset, lastTxOffset int32) (int32, error) {
	v, err := tx.nonblockingGet(block, offset, lastTxOffset, func(p *file.Page) (log.Value, error) {
		i, err := p.ReadInt32At(offset)
		return log.Int(i), err
	})
	if err != nil {
		return 0, err
	}
	if v.Kind() != log.KindInt {
		return 0, errors.Errorf("field at %d of %s holds a %s, not an int", offset, block, v.Kind())
	}
	return v.Int(), nil
}

// NonblockingGetString is NonblockingGetInt for string fields.
func (tx *Transaction) NonblockingGetString(block file.Block, offset, lastTxOffset int32) (string, error) {
	v, err := tx.nonblockingGet(block, offset, lastTxOffset, func(p *file.Page) (log.Value, error) {
		s, err := p.ReadStringAt(offset)
		return log.String(s), err
	})
	if err != nil {
		return "", err
	}
	if v.Kind() != log.KindString {
		return "", errors.Errorf("field at %d of %s holds a %s, not a string", offset, block, v.Kind())
	}
	return v.Str(), nil
}

// MVCCSetInt is SetInt followed by recording the transaction as the last
// writer in the field at lastTxOffset.
func (tx *Transaction) MVCCSetInt(block file.Block, offset, val, lastTxOffset int32) error {
	if err := tx.SetInt(block, offset, val); err != nil {
		return err
	}
	return tx.SetInt(block, lastTxOffset, tx.txNum)
}

// MVCCSetString is SetString followed by recording the transaction as the
// last writer in the field at lastTxOffset.
func (tx *Transaction) MVCCSetString(block file.Block, offset int32, val string, lastTxOffset int32) error {
	if err := tx.SetString(block, offset, val); err != nil {
		return err
	}
	return tx.SetInt(block, lastTxOffset, tx.txNum)
}

func (tx *Transaction) nonblockingGet(block file.Block, offset, lastTxOffset int32, read func(*file.Page) (log.Value, error)) (log.Value, error) {
	buf, err := tx.pinnedBuffer(block)
	if err != nil {
		return log.Value{}, err
	}

	held := tx.concurrencyManager.HasLock(block)
	if err := tx.concurrencyManager.SLock(block); err != nil {
		return log.Value{}, err
	}

	lastTx, err := buf.Contents().ReadInt32At(lastTxOffset)
	var current log.Value
	if err == nil {
		current, err = read(buf.Contents())
	}
	if !held {
		tx.concurrencyManager.Unlock(block)
	}
	if err != nil {
		return log.Value{}, err
	}

	if tx.isVisible(lastTx) {
		return current, nil
	}

	v, found, err := tx.recoveryManager.ValueFromLog(block, offset, tx.readView, tx.txNum)
	if err != nil {
		return log.Value{}, err
	}
	if !found {
		return current, nil
	}
	return v, nil
}

func (tx *Transaction) isVisible(writer int32) bool {
	return writer < tx.readView || writer == tx.txNum
}
