package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"txdb/buffer"
	"txdb/file"
	"txdb/log"
)

const testLogFile = "testlogfile"

type testEnv struct {
	dir string
	fm  *file.Manager
	lm  *log.Manager
	bm  *buffer.Manager
	txm *Manager
}

// setup creates file, log, buffer and transaction managers over a temporary directory.
func setup(t *testing.T, lockWait time.Duration) *testEnv {
	t.Helper()
	dir := t.TempDir()

	fm, err := file.NewManager(dir, 400)
	require.NoError(t, err, "failed to create file manager")
	t.Cleanup(func() { fm.Close() })

	env := &testEnv{dir: dir, fm: fm}
	env.restart(t, lockWait)
	return env
}

// restart drops every in-memory structure above the file manager, as a
// crash would, and opens new ones over the same files.
func (e *testEnv) restart(t *testing.T, lockWait time.Duration) {
	t.Helper()

	lm, err := log.NewManager(e.fm, testLogFile)
	require.NoError(t, err, "failed to create log manager")

	e.lm = lm
	e.bm = buffer.NewManagerWithWait(e.fm, lm, 8, time.Second)
	e.txm = NewManager(e.fm, lm, e.bm, lockWait)
}

func (e *testEnv) begin(t *testing.T) *Transaction {
	t.Helper()
	tx, err := e.txm.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { tx.Close() })
	return tx
}

// logRecords returns the log records, newest first.
func (e *testEnv) logRecords(t *testing.T) []LogRecord {
	t.Helper()
	iter, err := e.lm.Iterator()
	require.NoError(t, err)

	var records []LogRecord
	for iter.HasNext() {
		rec, err := iter.Next()
		require.NoError(t, err)
		record, err := ParseLogRecord(rec)
		require.NoError(t, err)
		records = append(records, record)
	}
	return records
}

func (e *testEnv) readIntFromDisk(t *testing.T, block file.Block, offset int32) int32 {
	t.Helper()
	page := file.NewPage(e.fm.BlockSize())
	require.NoError(t, e.fm.Read(block, page))
	v, err := page.ReadInt32At(offset)
	require.NoError(t, err)
	return v
}
