package buffer

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"txdb/file"
	"txdb/internal/cond"
	"txdb/log"
	"txdb/logging"
	"txdb/metrics"
)

// DefaultMaxWait is how long Pin waits for a buffer before giving up.
const DefaultMaxWait = 10 * time.Second

// ErrBufferAbort is returned when a client's request for a buffer times out.
// The caller is expected to roll back its transaction.
var ErrBufferAbort = errors.New("buffer manager: no buffer available")

// Manager is the buffer manager used by transactions. It wraps a
// BasicManager and makes clients wait, up to maxWait, when every buffer is pinned.
type Manager struct {
	mu      sync.Mutex
	cond    *cond.Cond // used to wait for a buffer to become available.
	basic   *BasicManager
	maxWait time.Duration
}

func NewManager(fileManager *file.Manager, logManager *log.Manager, numBufs int32) *Manager {
	return NewManagerWithWait(fileManager, logManager, numBufs, DefaultMaxWait)
}

// NewManagerWithWait is NewManager with a custom maximum wait for Pin and PinNew.
func NewManagerWithWait(fileManager *file.Manager, logManager *log.Manager, numBufs int32, maxWait time.Duration) *Manager {
	m := &Manager{
		basic:   NewBasicManager(fileManager, logManager, numBufs),
		maxWait: maxWait,
	}
	m.cond = cond.New(&m.mu)
	return m
}

// Available returns the number of available (unpinned) buffers.
func (m *Manager) Available() int32 {
	return m.basic.Available()
}

// FlushAll flushes all dirty buffers modified by the specified transaction.
func (m *Manager) FlushAll(txNum int32) error {
	return m.basic.FlushAll(txNum)
}

func (m *Manager) Unpin(buf *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.basic.Unpin(buf)
	if !buf.IsPinned() {
		// Wake up any waiting clients since a buffer is now free.
		m.cond.Broadcast()
	}
}

// Pin pins a buffer for the specified block. The method blocks if no buffers
// are available, waiting up to maxWait before returning ErrBufferAbort.
func (m *Manager) Pin(block file.Block) (*Buffer, error) {
	buf, err := m.waitFor(func() (*Buffer, error) {
		return m.basic.Pin(block)
	})
	if errors.Is(err, ErrBufferAbort) {
		logging.WithBlock(block).Warn("buffer pin aborted", zap.Duration("waited", m.maxWait))
		return nil, errors.Wrapf(err, "pin %s", block)
	}
	return buf, err
}

// PinNew appends a new block to the file and pins a buffer to it, waiting
// like Pin when every buffer is pinned.
func (m *Manager) PinNew(filename string, formatter PageFormatter) (*Buffer, error) {
	buf, err := m.waitFor(func() (*Buffer, error) {
		return m.basic.PinNew(filename, formatter)
	})
	if errors.Is(err, ErrBufferAbort) {
		logging.L().Warn("buffer pin aborted", zap.String("file", filename), zap.Duration("waited", m.maxWait))
		return nil, errors.Wrapf(err, "pin new block of %s", filename)
	}
	return buf, err
}

// waitFor retries tryToPin after every unpin until it yields a buffer or the
// deadline passes.
func (m *Manager) waitFor(tryToPin func() (*Buffer, error)) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline := time.Now().Add(m.maxWait)
	waited := false
	for {
		buf, err := tryToPin()
		if err != nil || buf != nil {
			return buf, err
		}

		if !waited {
			metrics.BufferWaits.Inc()
			waited = true
		}
		if !m.cond.WaitUntil(deadline) {
			// One last attempt: a buffer may have been released right at the deadline.
			if buf, err := tryToPin(); err != nil || buf != nil {
				return buf, err
			}
			metrics.BufferAborts.Inc()
			return nil, ErrBufferAbort
		}
	}
}
