package transaction

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"txdb/file"
	"txdb/internal/cond"
	"txdb/logging"
	"txdb/metrics"
)

// DefaultMaxWait defines the maximum time to wait for a lock.
const DefaultMaxWait = 10 * time.Second

// ErrLockAbort is returned when a lock request times out.
// The caller is expected to roll back its transaction.
var ErrLockAbort = errors.New("lock request aborted due to timeout")

// LockTable grants shared and exclusive locks on blocks. There is one lock
// table per process, shared by every transaction.
type LockTable struct {
	mu      sync.Mutex
	locks   map[file.Block]int32
	cond    *cond.Cond // used to wait for a block to become available.
	maxWait time.Duration
}

func NewLockTable(maxWait time.Duration) *LockTable {
	lt := &LockTable{
		locks:   make(map[file.Block]int32),
		maxWait: maxWait,
	}
	lt.cond = cond.New(&lt.mu)
	return lt
}

// SLock grants a shared (read) lock on the specified block.
// It will wait for at most maxWait for the lock.
func (lt *LockTable) SLock(block file.Block) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if err := lt.waitWhile(block, metrics.ModeShared, lt.hasXLock); err != nil {
		return err
	}

	lt.locks[block]++
	return nil
}

// XLock grants an exclusive (write) lock on the specified block.
// It will wait for at most maxWait for the lock.
func (lt *LockTable) XLock(block file.Block) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	// Concurrency manager always obtains an slock on the block before requesting the
	// xlock, and so a value higher than 1 indicates that some other transaction also has a
	// lock on this block.
	if err := lt.waitWhile(block, metrics.ModeExclusive, lt.hasOtherLocks); err != nil {
		return err
	}

	lt.locks[block] = -1
	return nil
}

// Unlock releases a lock on the specified block.
// Waiters are notified when the block becomes unlocked, or when a single
// shared lock remains and its holder may upgrade it.
func (lt *LockTable) Unlock(block file.Block) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if lt.getLockValue(block) > 1 {
		// There are other shared locks, so just decrement the count.
		lt.locks[block]--
		if lt.locks[block] == 1 {
			// The remaining holder may be waiting to upgrade.
			lt.cond.Broadcast()
		}
	} else {
		// This is the last shared lock or an exclusive lock.
		delete(lt.locks, block)
		lt.cond.Broadcast()
	}
}

// waitWhile blocks while blocked(block) holds, up to maxWait.
// It must be called with the mutex lock already held.
func (lt *LockTable) waitWhile(block file.Block, mode string, blocked func(file.Block) bool) error {
	if !blocked(block) {
		return nil
	}

	metrics.LockWaits.WithLabelValues(mode).Inc()
	deadline := time.Now().Add(lt.maxWait)
	for blocked(block) {
		if !lt.cond.WaitUntil(deadline) && blocked(block) {
			metrics.LockAborts.WithLabelValues(mode).Inc()
			logging.WithBlock(block).Warn("lock request aborted",
				zap.String("mode", mode), zap.Duration("waited", lt.maxWait))
			return errors.Wrapf(ErrLockAbort, "%s lock on %s", mode, block)
		}
	}
	return nil
}

// hasXLock checks if the block has an exclusive lock.
func (lt *LockTable) hasXLock(block file.Block) bool {
	return lt.locks[block] < 0
}

// hasOtherLocks checks if a lock other than the requester's shared lock is
// held on the block.
func (lt *LockTable) hasOtherLocks(block file.Block) bool {
	v := lt.locks[block]
	return v > 1 || v < 0
}

// getLockValue returns the lock value for a block.
// 0 means no lock, >0 means shared lock count, <0 means exclusive lock.
func (lt *LockTable) getLockValue(block file.Block) int32 {
	return lt.locks[block]
}
