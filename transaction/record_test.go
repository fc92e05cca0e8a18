package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txdb/file"
	"txdb/log"
)

func TestLogRecords(t *testing.T) {
	fm, err := file.NewManager(t.TempDir(), 400)
	require.NoError(t, err)
	t.Cleanup(func() { fm.Close() })
	lm, err := log.NewManager(fm, testLogFile)
	require.NoError(t, err)

	block := file.NewBlock("testfile", 3)
	_, err = WriteStartRecordToLog(lm, 7)
	require.NoError(t, err)
	_, err = WriteSetIntRecordToLog(lm, 7, block, 80, 5)
	require.NoError(t, err)
	_, err = WriteSetStringRecordToLog(lm, 7, block, 40, "old")
	require.NoError(t, err)
	_, err = WriteCommitRecordToLog(lm, 7)
	require.NoError(t, err)
	_, err = WriteRollbackRecordToLog(lm, 8)
	require.NoError(t, err)
	_, err = WriteCheckpointRecordToLog(lm)
	require.NoError(t, err)

	want := []string{
		"<CHECKPOINT>",
		"<ROLLBACK 8>",
		"<COMMIT 7>",
		"<SETSTRING 7 [file testfile, block 3] 40 old>",
		"<SETINT 7 [file testfile, block 3] 80 5>",
		"<START 7>",
	}

	iter, err := lm.Iterator()
	require.NoError(t, err)
	var got []string
	for iter.HasNext() {
		rec, err := iter.Next()
		require.NoError(t, err)
		record, err := ParseLogRecord(rec)
		require.NoError(t, err)
		got = append(got, record.String())
	}
	assert.Equal(t, want, got)

	t.Run("unknown tag", func(t *testing.T) {
		_, err := lm.Append(log.Int(42), log.Int(1))
		require.NoError(t, err)

		iter, err := lm.Iterator()
		require.NoError(t, err)
		rec, err := iter.Next()
		require.NoError(t, err)
		_, err = ParseLogRecord(rec)
		assert.ErrorIs(t, err, ErrUnknownLogRecord)
	})
}
