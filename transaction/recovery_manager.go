package transaction

import (
	"go.uber.org/zap"

	"txdb/buffer"
	"txdb/file"
	"txdb/log"
	"txdb/logging"
)

// RecoveryManager writes the log records of one transaction and uses the
// log to undo its changes on rollback, or the changes of every unfinished
// transaction at startup.
type RecoveryManager struct {
	logManager    *log.Manager
	bufferManager *buffer.Manager
	txNum         int32
}

// NewRecoveryManager writes a START record for the transaction.
func NewRecoveryManager(logManager *log.Manager, bufferManager *buffer.Manager, txNum int32) (*RecoveryManager, error) {
	if _, err := WriteStartRecordToLog(logManager, txNum); err != nil {
		return nil, err
	}

	return &RecoveryManager{
		logManager:    logManager,
		bufferManager: bufferManager,
		txNum:         txNum,
	}, nil
}

// Commit writes the transaction's modified buffers to disk, then writes a
// COMMIT record and flushes it.
func (m *RecoveryManager) Commit() error {
	if err := m.bufferManager.FlushAll(m.txNum); err != nil {
		return err
	}

	lsn, err := WriteCommitRecordToLog(m.logManager, m.txNum)
	if err != nil {
		return err
	}

	return m.logManager.Flush(lsn)
}

// Rollback undoes the transaction's changes, writes its modified buffers to
// disk, then writes a ROLLBACK record and flushes it.
func (m *RecoveryManager) Rollback() error {
	if err := m.doRollback(); err != nil {
		return err
	}

	if err := m.bufferManager.FlushAll(m.txNum); err != nil {
		return err
	}

	lsn, err := WriteRollbackRecordToLog(m.logManager, m.txNum)
	if err != nil {
		return err
	}

	return m.logManager.Flush(lsn)
}

// Recover undoes the changes of every unfinished transaction in the log and
// writes a quiescent CHECKPOINT record. It returns the highest transaction
// number found in the scanned part of the log, or -1 if there was none.
// It must run before any other transaction starts.
func (m *RecoveryManager) Recover() (int32, error) {
	if err := m.bufferManager.FlushAll(m.txNum); err != nil {
		return 0, err
	}

	maxTxNum, err := m.doRecover()
	if err != nil {
		return 0, err
	}

	if err := m.bufferManager.FlushAll(m.txNum); err != nil {
		return 0, err
	}

	lsn, err := WriteCheckpointRecordToLog(m.logManager)
	if err != nil {
		return 0, err
	}

	return maxTxNum, m.logManager.Flush(lsn)
}

// SetInt writes a SETINT record holding the current int at offset of the
// buffer. Nothing is logged for temporary files, and -1 is returned.
func (m *RecoveryManager) SetInt(buf *buffer.Buffer, offset int32) (int32, error) {
	oldVal, err := buf.Contents().ReadInt32At(offset)
	if err != nil {
		return 0, err
	}

	block := buf.Block()
	if file.IsTemp(block.Filename()) {
		return -1, nil
	}
	return WriteSetIntRecordToLog(m.logManager, m.txNum, block, offset, oldVal)
}

// SetString writes a SETSTRING record holding the current string at offset
// of the buffer. Nothing is logged for temporary files, and -1 is returned.
func (m *RecoveryManager) SetString(buf *buffer.Buffer, offset int32) (int32, error) {
	oldVal, err := buf.Contents().ReadStringAt(offset)
	if err != nil {
		return 0, err
	}

	block := buf.Block()
	if file.IsTemp(block.Filename()) {
		return -1, nil
	}
	return WriteSetStringRecordToLog(m.logManager, m.txNum, block, offset, oldVal)
}

// ValueFromLog returns the value of the field at offset of block as seen by
// the transaction txNum whose read view is readView. A writer is visible when
// its number is below readView or equal to txNum. The value is the
// before-image of the oldest invisible write made after the newest visible
// one. Writes older than the last checkpoint are visible to everyone. The
// second result is false when no invisible write exists, in which case the
// current value is the one to use.
func (m *RecoveryManager) ValueFromLog(block file.Block, offset, readView, txNum int32) (log.Value, bool, error) {
	iter, err := m.logManager.Iterator()
	if err != nil {
		return log.Value{}, false, err
	}

	var value log.Value
	found := false
	for iter.HasNext() {
		rec, err := iter.Next()
		if err != nil {
			return log.Value{}, false, err
		}

		record, err := ParseLogRecord(rec)
		if err != nil {
			return log.Value{}, false, err
		}

		// Every transaction before a checkpoint had finished when it was written.
		if record.Operator() == Checkpoint {
			break
		}
		update, ok := record.(updateRecord)
		if !ok {
			continue
		}
		if b, o := update.Target(); b != block || o != offset {
			continue
		}

		writer := update.TxNumber()
		if writer < readView || writer == txNum {
			break
		}
		value, found = update.BeforeImage(), true
	}

	return value, found, nil
}

func (m *RecoveryManager) doRollback() error {
	iter, err := m.logManager.Iterator()
	if err != nil {
		return err
	}

	for iter.HasNext() {
		rec, err := iter.Next()
		if err != nil {
			return err
		}

		record, err := ParseLogRecord(rec)
		if err != nil {
			return err
		}

		if record.TxNumber() == m.txNum {
			if record.Operator() == Start {
				return nil
			}
			if err := record.Undo(m.bufferManager, m.txNum); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *RecoveryManager) doRecover() (int32, error) {
	finishedTxs := make(map[int32]bool)
	maxTxNum := int32(-1)
	undone := 0

	iter, err := m.logManager.Iterator()
	if err != nil {
		return 0, err
	}

	for iter.HasNext() {
		rec, err := iter.Next()
		if err != nil {
			return 0, err
		}

		record, err := ParseLogRecord(rec)
		if err != nil {
			return 0, err
		}

		if record.Operator() == Checkpoint {
			break
		}

		maxTxNum = max(maxTxNum, record.TxNumber())
		if record.Operator() == Commit || record.Operator() == Rollback {
			finishedTxs[record.TxNumber()] = true
		} else if !finishedTxs[record.TxNumber()] {
			if _, ok := record.(updateRecord); ok {
				undone++
			}
			if err := record.Undo(m.bufferManager, m.txNum); err != nil {
				return 0, err
			}
		}
	}

	logging.WithTx(m.txNum).Info("recovery scan finished",
		zap.Int("finished", len(finishedTxs)),
		zap.Int("undone", undone),
		zap.Int32("max-tx", maxTxNum))
	return maxTxNum, nil
}
