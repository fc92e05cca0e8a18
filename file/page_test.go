package file

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_WriteInt32At(t *testing.T) {
	const blockSize = 100

	testCases := []struct {
		name    string
		offset  int32
		val     int32
		wantErr error
	}{
		{"Write positive value to middle", 20, 12345, nil},
		{"Write negative value to start", 0, -1, nil},
		{"Write to last possible offset", 96, 98765, nil},
		{"Write out of bounds", 97, 999, io.EOF}, // 97 + 4 > 100
		{"Write at exact boundary", 100, 999, io.EOF},
		{"Write at negative offset", -4, 999, io.EOF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPage(blockSize)
			err := p.WriteInt32At(tc.offset, tc.val)
			assert.Equal(t, tc.wantErr, err)

			if tc.wantErr == nil {
				gotVal, err := p.ReadInt32At(tc.offset)
				require.NoError(t, err)
				assert.Equal(t, tc.val, gotVal)
			}
		})
	}
}

func TestPage_ReadInt32At(t *testing.T) {
	const blockSize = 100
	p := NewPage(blockSize)

	testValues := map[int32]int32{
		0:  -1,
		20: 12345,
		96: 98765, // Last possible offset
	}
	for offset, val := range testValues {
		require.NoError(t, p.WriteInt32At(offset, val))
	}

	testCases := []struct {
		name    string
		offset  int32
		wantVal int32
		wantErr error
	}{
		{"Read positive value from middle", 20, 12345, nil},
		{"Read negative value from start", 0, -1, nil},
		{"Read from last possible offset", 96, 98765, nil},
		{"Read out of bounds", 97, 0, io.EOF},
		{"Read at exact boundary", 100, 0, io.EOF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotVal, gotErr := p.ReadInt32At(tc.offset)
			assert.Equal(t, tc.wantErr, gotErr)
			assert.Equal(t, tc.wantVal, gotVal)
		})
	}
}

func TestPage_WriteBytesAt(t *testing.T) {
	const blockSize = 100

	testCases := []struct {
		name    string
		offset  int32
		val     []byte
		wantErr error
	}{
		{"Write normal bytes", 10, []byte("hello world"), nil},
		{"Write empty bytes", 30, []byte{}, nil},
		{"Write bytes that fill the page exactly", 91, []byte("final"), nil}, // 91+4+5 = 100
		{"Write bytes that are too long", 50, make([]byte, 60), io.EOF},      // 50+4+60 > 100
		{"Write bytes with offset out of bounds", 97, []byte("end"), io.EOF}, // 97+4+3 > 100
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPage(blockSize)
			err := p.WriteBytesAt(tc.offset, tc.val)
			assert.Equal(t, tc.wantErr, err)

			if tc.wantErr == nil {
				gotVal, err := p.ReadBytesAt(tc.offset)
				require.NoError(t, err)
				assert.Equal(t, tc.val, gotVal)
			}
		})
	}
}

func TestPage_ReadBytesAt(t *testing.T) {
	const blockSize = 100
	p := NewPage(blockSize)

	testValues := map[int32][]byte{
		10: []byte("hello world"),
		30: {},
		91: []byte("final"), // Last possible offset
	}
	for offset, val := range testValues {
		require.NoError(t, p.WriteBytesAt(offset, val))
	}

	testCases := []struct {
		name    string
		offset  int32
		wantVal []byte
		wantErr error
	}{
		{"Read normal bytes", 10, []byte("hello world"), nil},
		{"Read empty bytes", 30, []byte{}, nil},
		{"Read bytes at end of page", 91, []byte("final"), nil},
		{"Read with length prefix out of bounds", 98, nil, io.EOF},
		{"Read at exact boundary", 100, nil, io.EOF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotVal, gotErr := p.ReadBytesAt(tc.offset)
			assert.Equal(t, tc.wantErr, gotErr)
			assert.Equal(t, tc.wantVal, gotVal)
		})
	}
}

func TestPage_Strings(t *testing.T) {
	p := NewPage(100)
	require.NoError(t, p.WriteStringAt(0, "héllo"))

	s, err := p.ReadStringAt(0)
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	assert.Equal(t, int32(4+6), EncodedLength("héllo"))
	assert.Equal(t, int32(4+5*BytesPerChar), MaxLength(5))
	assert.GreaterOrEqual(t, MaxLength(5), EncodedLength("héllo"))
}

func TestPage_FromBuf(t *testing.T) {
	buf := make([]byte, 8)
	p := NewPageFromBuf(buf)
	require.NoError(t, p.WriteInt32At(4, 9))
	assert.Equal(t, int32(8), p.Size())
	assert.Equal(t, byte(9), buf[7], "the page must share the caller's slice")

	p.Clear()
	assert.Equal(t, make([]byte, 8), buf)
}
