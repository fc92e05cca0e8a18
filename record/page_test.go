package record

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage(t *testing.T) {
	txm := setup(t)
	layout := testLayout()

	tx := begin(t, txm)
	block, err := tx.Append("testfile", NewFormatter(layout))
	require.NoError(t, err)

	page, err := NewPage(tx, block, layout)
	require.NoError(t, err)

	var inserted int32
	slot, err := page.InsertAfter(-1)
	require.NoError(t, err)
	for slot >= 0 {
		require.NoError(t, page.SetInt(slot, "A", slot))
		require.NoError(t, page.SetString(slot, "B", fmt.Sprintf("rec%d", slot)))
		inserted++
		slot, err = page.InsertAfter(slot)
		require.NoError(t, err)
	}
	assert.Equal(t, layout.SlotsPerBlock(tx.BlockSize()), inserted)

	// Delete the even slots.
	slot, err = page.NextAfter(-1)
	require.NoError(t, err)
	for slot >= 0 {
		a, err := page.GetInt(slot, "A")
		require.NoError(t, err)
		b, err := page.GetString(slot, "B")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("rec%d", a), b)

		if a%2 == 0 {
			require.NoError(t, page.Delete(slot))
		}
		slot, err = page.NextAfter(slot)
		require.NoError(t, err)
	}

	var remaining []int32
	slot, err = page.NextAfter(-1)
	require.NoError(t, err)
	for slot >= 0 {
		a, err := page.GetInt(slot, "A")
		require.NoError(t, err)
		remaining = append(remaining, a)
		slot, err = page.NextAfter(slot)
		require.NoError(t, err)
	}
	for _, a := range remaining {
		assert.Equal(t, int32(1), a%2)
	}
	assert.Len(t, remaining, int(inserted/2))

	txNum, err := page.GetInt(1, TxNumField)
	require.NoError(t, err)
	assert.Equal(t, tx.TxNum(), txNum)

	page.Close()
	require.NoError(t, tx.Commit())
}

func TestPage_SnapshotReads(t *testing.T) {
	txm := setup(t)
	layout := testLayout()

	setupTx := begin(t, txm)
	block, err := setupTx.Append("testfile", NewFormatter(layout))
	require.NoError(t, err)
	page, err := NewPage(setupTx, block, layout)
	require.NoError(t, err)
	slot, err := page.InsertAfter(-1)
	require.NoError(t, err)
	require.NoError(t, page.SetInt(slot, "A", 1))
	page.Close()
	require.NoError(t, setupTx.Commit())

	writer := begin(t, txm)
	reader := begin(t, txm)

	writerPage, err := NewPage(writer, block, layout)
	require.NoError(t, err)
	require.NoError(t, writerPage.SetInt(slot, "A", 2))
	newSlot, err := writerPage.InsertAfter(slot)
	require.NoError(t, err)
	require.NoError(t, writerPage.SetInt(newSlot, "A", 3))
	writerPage.Close()
	require.NoError(t, writer.Commit())

	readerPage, err := NewPage(reader, block, layout)
	require.NoError(t, err)
	defer readerPage.Close()

	a, err := readerPage.GetInt(slot, "A")
	require.NoError(t, err)
	assert.Equal(t, int32(1), a, "the update committed after the reader began is not visible")

	next, err := readerPage.NextAfter(slot)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), next, "the insert committed after the reader began is not visible")

	later := begin(t, txm)
	laterPage, err := NewPage(later, block, layout)
	require.NoError(t, err)
	defer laterPage.Close()

	a, err = laterPage.GetInt(slot, "A")
	require.NoError(t, err)
	assert.Equal(t, int32(2), a)
	next, err = laterPage.NextAfter(slot)
	require.NoError(t, err)
	assert.Equal(t, newSlot, next)
}
