package log

import (
	"sync"

	"github.com/pkg/errors"

	"txdb/file"
	"txdb/metrics"
)

// How records are laid out in a log block:
//
//	+--------+----------+----+----------+----+-----+------------+
//	| header | record 1 | bp | record 2 | bp | ... | free space |
//	+--------+----------+----+----------+----+-----+------------+
//	0        4
//
// Each record is its values written back to back, followed by a 4-byte
// back-pointer holding the position of the previous record's back-pointer
// (0 for the first record of the block). The header holds the position of
// the last back-pointer in the block, so the records of a block can be
// walked newest to oldest without an index.

// lastPos is the offset of the block header.
const lastPos = 0

// ErrRecordTooLarge is returned when a record cannot fit in an empty log block.
var ErrRecordTooLarge = errors.New("log manager: record does not fit in a log block")

type Manager struct {
	mu           sync.Mutex
	fileManager  *file.Manager
	logFile      string
	logPage      *file.Page
	currentBlock file.Block
	currentPos   int32
}

// NewManager creates a new log manager for a given log file.
// If the log file does not exist, it creates a new one with a single, empty block.
// If the log file exists, it reads the last block of the file into its internal
// log page so that new records are appended after the existing ones.
func NewManager(fileManager *file.Manager, logFile string) (*Manager, error) {
	m := &Manager{
		fileManager: fileManager,
		logFile:     logFile,
		logPage:     file.NewPage(fileManager.BlockSize()),
	}

	logSize, err := fileManager.Size(logFile)
	if err != nil {
		return nil, err
	}

	if logSize == 0 {
		if err := m.appendNewBlock(); err != nil {
			return nil, err
		}
		return m, nil
	}

	m.currentBlock = file.NewBlock(logFile, logSize-1) // block number is 0-indexed
	if err := fileManager.Read(m.currentBlock, m.logPage); err != nil {
		return nil, err
	}
	last, err := m.logPage.ReadInt32At(lastPos)
	if err != nil {
		return nil, err
	}
	m.currentPos = last + file.Int32Size

	return m, nil
}

// Flush ensures that every record with the given LSN or lower is on disk.
// LSNs are log block numbers, so flushing one record makes every record of
// its block durable.
func (m *Manager) Flush(lsn int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lsn >= m.currentBlock.Number() {
		return m.flush()
	}
	return nil
}

// Iterator returns a log iterator starting from the most recent log record.
// It ensures all current records are flushed to disk before creating the iterator.
func (m *Manager) Iterator() (*Iterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flush(); err != nil {
		return nil, err
	}

	return NewIterator(m.fileManager, m.currentBlock)
}

// Append adds a record made of the given values to the log and returns its
// LSN, the number of the log block that holds it. If the record does not fit
// in the current block, the block is flushed and a new one is started.
func (m *Manager) Append(values ...Value) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recordSize := file.Int32Size // back-pointer
	for _, v := range values {
		recordSize += v.encodedSize()
	}

	blockSize := m.fileManager.BlockSize()
	if file.Int32Size+recordSize >= blockSize {
		return 0, errors.Wrapf(ErrRecordTooLarge, "record of %d bytes, block of %d", recordSize, blockSize)
	}

	if m.currentPos+recordSize >= blockSize {
		// It doesn't fit, so move to the next block.
		if err := m.flush(); err != nil {
			return 0, err
		}
		if err := m.appendNewBlock(); err != nil {
			return 0, err
		}
	}

	for _, v := range values {
		if err := v.writeTo(m.logPage, m.currentPos); err != nil {
			return 0, err
		}
		m.currentPos += v.encodedSize()
	}

	if err := m.finalizeRecord(); err != nil {
		return 0, err
	}

	metrics.LogAppends.Inc()
	return m.currentBlock.Number(), nil
}

// finalizeRecord writes the back-pointer of the record just appended and
// points the block header at it.
func (m *Manager) finalizeRecord() error {
	last, err := m.logPage.ReadInt32At(lastPos)
	if err != nil {
		return err
	}
	if err := m.logPage.WriteInt32At(m.currentPos, last); err != nil {
		return err
	}
	if err := m.logPage.WriteInt32At(lastPos, m.currentPos); err != nil {
		return err
	}
	m.currentPos += file.Int32Size
	return nil
}

func (m *Manager) flush() error {
	if err := m.fileManager.Write(m.currentBlock, m.logPage); err != nil {
		return err
	}
	metrics.LogFlushes.Inc()
	return nil
}

func (m *Manager) appendNewBlock() error {
	m.logPage.Clear()
	if err := m.logPage.WriteInt32At(lastPos, 0); err != nil {
		return err
	}

	block, err := m.fileManager.Append(m.logFile, m.logPage)
	if err != nil {
		return err
	}

	m.currentBlock = block
	m.currentPos = file.Int32Size
	return nil
}
