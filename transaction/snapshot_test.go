package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txdb/file"
)

const (
	fieldOffset  = 0
	otherOffset  = 8
	stringOffset = 20
	lastTxOffset = 4
)

func mvccWrite(t *testing.T, env *testEnv, block file.Block, offset, val int32) int32 {
	t.Helper()
	tx, err := env.txm.Begin()
	require.NoError(t, err)
	defer tx.Close()

	require.NoError(t, tx.Pin(block))
	require.NoError(t, tx.MVCCSetInt(block, offset, val, lastTxOffset))
	require.NoError(t, tx.Commit())
	return tx.TxNum()
}

func nonblockingInt(t *testing.T, tx *Transaction, block file.Block, offset int32) int32 {
	t.Helper()
	require.NoError(t, tx.Pin(block))
	defer tx.Unpin(block)

	v, err := tx.NonblockingGetInt(block, offset, lastTxOffset)
	require.NoError(t, err)
	return v
}

func TestSnapshotRead(t *testing.T) {
	t.Run("reader keeps the value from before a later commit", func(t *testing.T) {
		env := setup(t, time.Second)
		block := file.NewBlock("testfile", 0)

		writer := env.begin(t)
		reader := env.begin(t)
		assert.Equal(t, writer.TxNum(), reader.ReadView())

		require.NoError(t, writer.Pin(block))
		require.NoError(t, writer.MVCCSetInt(block, fieldOffset, 5, lastTxOffset))
		require.NoError(t, writer.Commit())

		assert.Equal(t, int32(0), nonblockingInt(t, reader, block, fieldOffset))

		// A transaction that began after the commit sees the new value.
		later := env.begin(t)
		assert.Equal(t, int32(5), nonblockingInt(t, later, block, fieldOffset))

		// The blocking read path always sees the latest committed value.
		require.NoError(t, reader.Pin(block))
		v, err := reader.GetInt(block, fieldOffset)
		require.NoError(t, err)
		assert.Equal(t, int32(5), v)
	})

	t.Run("several invisible writers", func(t *testing.T) {
		env := setup(t, time.Second)
		block := file.NewBlock("testfile", 0)

		mvccWrite(t, env, block, fieldOffset, 3)
		reader := env.begin(t)
		mvccWrite(t, env, block, fieldOffset, 10)
		mvccWrite(t, env, block, fieldOffset, 20)

		assert.Equal(t, int32(3), nonblockingInt(t, reader, block, fieldOffset))
	})

	t.Run("invisible write to another field of the record", func(t *testing.T) {
		env := setup(t, time.Second)
		block := file.NewBlock("testfile", 0)

		mvccWrite(t, env, block, fieldOffset, 3)
		reader := env.begin(t)
		mvccWrite(t, env, block, otherOffset, 1)

		assert.Equal(t, int32(3), nonblockingInt(t, reader, block, fieldOffset))
		assert.Equal(t, int32(0), nonblockingInt(t, reader, block, otherOffset))
	})

	t.Run("own writes are visible", func(t *testing.T) {
		env := setup(t, time.Second)
		block := file.NewBlock("testfile", 0)

		blocker := env.begin(t) // keeps the read view low
		tx := env.begin(t)
		assert.Equal(t, blocker.TxNum(), tx.ReadView())

		require.NoError(t, tx.Pin(block))
		require.NoError(t, tx.MVCCSetInt(block, fieldOffset, 8, lastTxOffset))
		require.NoError(t, tx.MVCCSetString(block, stringOffset, "mine", lastTxOffset))

		v, err := tx.NonblockingGetInt(block, fieldOffset, lastTxOffset)
		require.NoError(t, err)
		assert.Equal(t, int32(8), v)

		s, err := tx.NonblockingGetString(block, stringOffset, lastTxOffset)
		require.NoError(t, err)
		assert.Equal(t, "mine", s)

		assert.True(t, tx.concurrencyManager.HasLock(block), "a lock held before the read is kept")
	})

	t.Run("string fields", func(t *testing.T) {
		env := setup(t, time.Second)
		block := file.NewBlock("testfile", 0)

		reader := env.begin(t)

		writer := env.begin(t)
		require.NoError(t, writer.Pin(block))
		require.NoError(t, writer.MVCCSetString(block, stringOffset, "new", lastTxOffset))
		require.NoError(t, writer.Commit())

		require.NoError(t, reader.Pin(block))
		s, err := reader.NonblockingGetString(block, stringOffset, lastTxOffset)
		require.NoError(t, err)
		assert.Equal(t, "", s)

		_, err = reader.NonblockingGetInt(block, stringOffset, lastTxOffset)
		assert.Error(t, err, "a string before-image is not an int")
	})

	t.Run("the shared lock is released after the read", func(t *testing.T) {
		env := setup(t, 50*time.Millisecond)
		block := file.NewBlock("testfile", 0)

		reader := env.begin(t)
		nonblockingInt(t, reader, block, fieldOffset)
		assert.False(t, reader.concurrencyManager.HasLock(block))

		writer := env.begin(t)
		require.NoError(t, writer.Pin(block))
		require.NoError(t, writer.MVCCSetInt(block, fieldOffset, 1, lastTxOffset))
		require.NoError(t, writer.Commit())
	})
}
