package transaction

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"txdb/buffer"
	"txdb/file"
	"txdb/logging"
	"txdb/metrics"
)

var (
	// ErrBlockNotPinned is returned when a transaction accesses a block it has not pinned.
	ErrBlockNotPinned = errors.New("block is not pinned by the transaction")
	// ErrTxDone is returned when a transaction is used after it committed or rolled back.
	ErrTxDone = errors.New("transaction has already been committed or rolled back")
)

// Transaction provides transaction management for clients, ensuring that all
// transactions are serializable, recoverable, and in general satisfy the ACID
// properties. A Transaction is owned by a single goroutine.
type Transaction struct {
	manager            *Manager
	txNum              int32
	readView           int32
	fileManager        *file.Manager
	bufferManager      *buffer.Manager
	recoveryManager    *RecoveryManager
	concurrencyManager *ConcurrencyManager
	bufferList         *BufferList
	done               bool
	closed             bool
}

// Commit flushes the transaction's changes and log records, then releases
// its locks and pins.
func (tx *Transaction) Commit() error {
	if tx.done {
		return ErrTxDone
	}

	if err := tx.recoveryManager.Commit(); err != nil {
		return err
	}

	logging.WithTx(tx.txNum).Debug("transaction committed")
	metrics.Transactions.WithLabelValues(metrics.OutcomeCommit).Inc()
	tx.finish()
	return nil
}

// Rollback undoes the transaction's changes, then releases its locks and pins.
func (tx *Transaction) Rollback() error {
	if tx.done {
		return ErrTxDone
	}

	if err := tx.recoveryManager.Rollback(); err != nil {
		return err
	}

	logging.WithTx(tx.txNum).Debug("transaction rolled back")
	metrics.Transactions.WithLabelValues(metrics.OutcomeRollback).Inc()
	tx.finish()
	return nil
}

// Recover flushes all modified buffers, undoes the changes of unfinished
// transactions found in the log and writes a checkpoint. It is called at
// system startup, before any user transaction begins.
func (tx *Transaction) Recover() error {
	if tx.done {
		return ErrTxDone
	}

	maxTxNum, err := tx.recoveryManager.Recover()
	if err != nil {
		return err
	}

	tx.manager.observeTxNum(maxTxNum)
	return nil
}

// Close removes the transaction from the set of live transactions. A
// transaction that has not ended is rolled back first. If the rollback
// fails, the locks and pins are released anyway and the unfinished changes
// are left for the next startup recovery. Close may be called more than once.
func (tx *Transaction) Close() error {
	if tx.closed {
		return nil
	}

	var err error
	if !tx.done {
		if err = tx.Rollback(); err != nil {
			logging.WithTx(tx.txNum).Warn("rollback failed on close", zap.Error(err))
			tx.finish()
		}
	}
	tx.closed = true
	tx.manager.unregister(tx.txNum)
	return err
}

// Pin pins the block. The transaction manages the buffer for the client.
func (tx *Transaction) Pin(block file.Block) error {
	if tx.done {
		return ErrTxDone
	}
	return tx.bufferList.Pin(block)
}

// Unpin releases one pin on the block.
func (tx *Transaction) Unpin(block file.Block) {
	tx.bufferList.Unpin(block)
}

// GetInt returns the int stored at offset of the block after obtaining a
// shared lock on it.
func (tx *Transaction) GetInt(block file.Block, offset int32) (int32, error) {
	buf, err := tx.pinnedBuffer(block)
	if err != nil {
		return 0, err
	}

	if err := tx.concurrencyManager.SLock(block); err != nil {
		return 0, err
	}

	return buf.Contents().ReadInt32At(offset)
}

// GetString returns the string stored at offset of the block after obtaining
// a shared lock on it.
func (tx *Transaction) GetString(block file.Block, offset int32) (string, error) {
	buf, err := tx.pinnedBuffer(block)
	if err != nil {
		return "", err
	}

	if err := tx.concurrencyManager.SLock(block); err != nil {
		return "", err
	}

	return buf.Contents().ReadStringAt(offset)
}

// SetInt stores an int at offset of the block. It obtains an exclusive lock
// on the block, logs the current value and then writes the new one.
func (tx *Transaction) SetInt(block file.Block, offset int32, val int32) error {
	buf, err := tx.pinnedBuffer(block)
	if err != nil {
		return err
	}

	if err := tx.concurrencyManager.XLock(block); err != nil {
		return err
	}

	lsn, err := tx.recoveryManager.SetInt(buf, offset)
	if err != nil {
		return err
	}

	if err := buf.Contents().WriteInt32At(offset, val); err != nil {
		return err
	}

	buf.SetModified(tx.txNum, lsn)
	return nil
}

// SetString stores a string at offset of the block. It obtains an exclusive
// lock on the block, logs the current value and then writes the new one.
func (tx *Transaction) SetString(block file.Block, offset int32, val string) error {
	buf, err := tx.pinnedBuffer(block)
	if err != nil {
		return err
	}

	if err := tx.concurrencyManager.XLock(block); err != nil {
		return err
	}

	lsn, err := tx.recoveryManager.SetString(buf, offset)
	if err != nil {
		return err
	}

	if err := buf.Contents().WriteStringAt(offset, val); err != nil {
		return err
	}

	buf.SetModified(tx.txNum, lsn)
	return nil
}

// Size returns the number of blocks in the file. It takes a shared lock on
// the end of the file so that concurrent appends are seen consistently.
func (tx *Transaction) Size(filename string) (int32, error) {
	if tx.done {
		return 0, ErrTxDone
	}

	if err := tx.concurrencyManager.SLock(file.NewBlock(filename, file.EndOfFile)); err != nil {
		return 0, err
	}
	return tx.fileManager.Size(filename)
}

// Append adds a block formatted by formatter to the end of the file and
// returns it. It takes an exclusive lock on the end of the file. The new
// block is not left pinned.
func (tx *Transaction) Append(filename string, formatter buffer.PageFormatter) (file.Block, error) {
	if tx.done {
		return file.Block{}, ErrTxDone
	}

	if err := tx.concurrencyManager.XLock(file.NewBlock(filename, file.EndOfFile)); err != nil {
		return file.Block{}, err
	}

	block, err := tx.bufferList.PinNew(filename, formatter)
	if err != nil {
		return file.Block{}, err
	}
	tx.bufferList.Unpin(block)
	return block, nil
}

func (tx *Transaction) TxNum() int32 {
	return tx.txNum
}

// ReadView returns the smallest transaction number that was live when the
// transaction began. Writers below it are visible to snapshot reads.
func (tx *Transaction) ReadView() int32 {
	return tx.readView
}

func (tx *Transaction) BlockSize() int32 {
	return tx.fileManager.BlockSize()
}

func (tx *Transaction) AvailableBuffers() int32 {
	return tx.bufferManager.Available()
}

func (tx *Transaction) pinnedBuffer(block file.Block) (*buffer.Buffer, error) {
	if tx.done {
		return nil, ErrTxDone
	}

	buf := tx.bufferList.GetBuffer(block)
	if buf == nil {
		return nil, errors.Wrapf(ErrBlockNotPinned, "tx %d, %s", tx.txNum, block)
	}
	return buf, nil
}

func (tx *Transaction) finish() {
	tx.concurrencyManager.Release()
	tx.bufferList.UnpinAll()
	tx.done = true
	tx.manager.unregister(tx.txNum)
}
