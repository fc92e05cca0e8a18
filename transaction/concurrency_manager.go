package transaction

import "txdb/file"

type lockMode uint8

const (
	sharedLock lockMode = iota + 1
	exclusiveLock
)

// ConcurrencyManager tracks the locks held by one transaction and obtains
// them from the shared lock table.
type ConcurrencyManager struct {
	lockTable *LockTable
	locks     map[file.Block]lockMode
}

func NewConcurrencyManager(lockTable *LockTable) *ConcurrencyManager {
	return &ConcurrencyManager{
		lockTable: lockTable,
		locks:     make(map[file.Block]lockMode),
	}
}

// SLock obtains a shared lock on the block, unless the transaction already
// holds a lock on it.
func (cm *ConcurrencyManager) SLock(block file.Block) error {
	if _, exist := cm.locks[block]; exist {
		return nil
	}

	if err := cm.lockTable.SLock(block); err != nil {
		return err
	}

	cm.locks[block] = sharedLock
	return nil
}

// XLock obtains an exclusive lock on the block by first getting a shared
// lock and then upgrading it.
func (cm *ConcurrencyManager) XLock(block file.Block) error {
	if cm.hasXLock(block) {
		return nil
	}

	// Transaction having an xlock on a block also has an implied slock on it.
	if err := cm.SLock(block); err != nil {
		return err
	}

	if err := cm.lockTable.XLock(block); err != nil {
		return err
	}

	cm.locks[block] = exclusiveLock
	return nil
}

// HasLock reports whether the transaction holds any lock on the block.
func (cm *ConcurrencyManager) HasLock(block file.Block) bool {
	_, exist := cm.locks[block]
	return exist
}

// Unlock releases the transaction's lock on a single block before the
// transaction ends. It is only used by snapshot reads to drop a shared lock
// they took themselves.
func (cm *ConcurrencyManager) Unlock(block file.Block) {
	if _, exist := cm.locks[block]; !exist {
		return
	}
	cm.lockTable.Unlock(block)
	delete(cm.locks, block)
}

// Release releases every lock held by the transaction.
func (cm *ConcurrencyManager) Release() {
	for block := range cm.locks {
		cm.lockTable.Unlock(block)
	}
	clear(cm.locks)
}

func (cm *ConcurrencyManager) hasXLock(block file.Block) bool {
	lock, exist := cm.locks[block]
	return exist && lock == exclusiveLock
}
