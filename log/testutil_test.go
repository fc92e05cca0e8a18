package log

import (
	"testing"

	"github.com/stretchr/testify/require"

	"txdb/file"
)

func setup(t *testing.T, blockSize int32) (*file.Manager, *Manager, string) {
	t.Helper()
	dir := t.TempDir()
	fm, err := file.NewManager(dir, blockSize)
	require.NoError(t, err, "failed to create file manager")
	logFile := "testlogfile"
	lm, err := NewManager(fm, logFile)
	require.NoError(t, err, "failed to create log manager")
	return fm, lm, logFile
}

// readAll drains an iterator, decoding each record as a string followed by an int.
func readAll(t *testing.T, it *Iterator) []string {
	t.Helper()
	var got []string
	for it.HasNext() {
		rec, err := it.Next()
		require.NoError(t, err)
		s, err := rec.NextString()
		require.NoError(t, err)
		_, err = rec.NextInt()
		require.NoError(t, err)
		got = append(got, s)
	}
	return got
}
