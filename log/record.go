package log

import (
	"txdb/file"
)

// Record is a cursor over the values of one log record, read in the order
// they were appended.
type Record struct {
	page *file.Page
	pos  int32
}

func newRecord(buf []byte) *Record {
	return &Record{page: file.NewPageFromBuf(buf)}
}

// NextInt reads the next value as an int.
func (r *Record) NextInt() (int32, error) {
	v, err := r.page.ReadInt32At(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += file.Int32Size
	return v, nil
}

// NextString reads the next value as a string.
func (r *Record) NextString() (string, error) {
	s, err := r.page.ReadStringAt(r.pos)
	if err != nil {
		return "", err
	}
	r.pos += file.EncodedLength(s)
	return s, nil
}

// Bytes returns the raw encoding of the record.
func (r *Record) Bytes() []byte {
	return r.page.Buf()
}
