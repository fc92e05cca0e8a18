package transaction

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"txdb/buffer"
	"txdb/file"
	"txdb/log"
	"txdb/logging"
)

// Manager is the process-wide transaction context. It owns the lock table
// shared by every transaction, hands out transaction numbers and tracks the
// live transactions that read views are computed from.
type Manager struct {
	fileManager   *file.Manager
	logManager    *log.Manager
	bufferManager *buffer.Manager
	lockTable     *LockTable

	mu        sync.Mutex
	nextTxNum int32
	live      *btree.BTreeG[int32]

	active *xsync.MapOf[int32, *Transaction]
}

func NewManager(fileManager *file.Manager, logManager *log.Manager, bufferManager *buffer.Manager, lockWait time.Duration) *Manager {
	return &Manager{
		fileManager:   fileManager,
		logManager:    logManager,
		bufferManager: bufferManager,
		lockTable:     NewLockTable(lockWait),
		live:          btree.NewBTreeG(func(a, b int32) bool { return a < b }),
		active:        xsync.NewMapOf[int32, *Transaction](),
	}
}

// Begin starts a new transaction. Its read view is the smallest live
// transaction number, counting the new transaction itself.
func (m *Manager) Begin() (*Transaction, error) {
	txNum, readView := m.register()

	recoveryManager, err := NewRecoveryManager(m.logManager, m.bufferManager, txNum)
	if err != nil {
		m.unregister(txNum)
		return nil, err
	}

	tx := &Transaction{
		manager:            m,
		txNum:              txNum,
		readView:           readView,
		fileManager:        m.fileManager,
		bufferManager:      m.bufferManager,
		recoveryManager:    recoveryManager,
		concurrencyManager: NewConcurrencyManager(m.lockTable),
		bufferList:         NewBufferList(m.bufferManager),
	}
	m.active.Store(txNum, tx)

	logging.WithTx(txNum).Debug("transaction started", zap.Int32("read-view", readView))
	return tx, nil
}

// Recover runs startup recovery in a fresh transaction and commits it.
// Transaction numbers handed out afterwards are above every number found
// in the log.
func (m *Manager) Recover() error {
	tx, err := m.Begin()
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := tx.Recover(); err != nil {
		return err
	}
	return tx.Commit()
}

// Active returns the number of transactions that have begun and not yet
// been closed or ended.
func (m *Manager) Active() int {
	return m.active.Size()
}

// LockTable returns the lock table shared by the manager's transactions.
func (m *Manager) LockTable() *LockTable {
	return m.lockTable
}

func (m *Manager) register() (txNum, readView int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTxNum++
	txNum = m.nextTxNum
	m.live.Set(txNum)
	readView, _ = m.live.Min()
	return txNum, readView
}

func (m *Manager) unregister(txNum int32) {
	m.mu.Lock()
	m.live.Delete(txNum)
	m.mu.Unlock()

	m.active.Delete(txNum)
}

// observeTxNum makes sure later transactions are numbered above txNum.
func (m *Manager) observeTxNum(txNum int32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTxNum = max(m.nextTxNum, txNum)
}
