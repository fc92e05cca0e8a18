package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"txdb/buffer"
	"txdb/file"
	"txdb/log"
	"txdb/transaction"
)

func setup(t *testing.T) *transaction.Manager {
	t.Helper()
	directory := t.TempDir()

	fileManager, err := file.NewManager(directory, 400)
	require.NoError(t, err)
	t.Cleanup(func() { fileManager.Close() })

	logManager, err := log.NewManager(fileManager, "testlogfile")
	require.NoError(t, err)

	bufferManager := buffer.NewManager(fileManager, logManager, 8)
	return transaction.NewManager(fileManager, logManager, bufferManager, time.Second)
}

func begin(t *testing.T, txm *transaction.Manager) *transaction.Transaction {
	t.Helper()
	tx, err := txm.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { tx.Close() })
	return tx
}

func testLayout() *Layout {
	schema := NewSchema()
	schema.AddIntField("A")
	schema.AddStringField("B", 9)
	return NewLayout(schema)
}
