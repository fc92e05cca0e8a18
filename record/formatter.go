package record

import (
	"txdb/buffer"
	"txdb/file"
)

// Formatter fills a new block with empty slots whose fields hold default
// values: 0 for ints and the empty string for varchars.
type Formatter struct {
	layout *Layout
}

var _ buffer.PageFormatter = (*Formatter)(nil)

func NewFormatter(layout *Layout) *Formatter {
	return &Formatter{layout: layout}
}

func (f *Formatter) Format(page *file.Page) {
	slotSize := f.layout.SlotSize()
	schema := f.layout.Schema()
	for pos := int32(0); pos+slotSize <= page.Size(); pos += slotSize {
		_ = page.WriteInt32At(pos, Empty)
		for _, fieldName := range schema.Fields() {
			fieldPos := pos + f.layout.Offset(fieldName)
			if schema.FieldType(fieldName) == Integer {
				_ = page.WriteInt32At(fieldPos, 0)
			} else {
				_ = page.WriteStringAt(fieldPos, "")
			}
		}
	}
}
