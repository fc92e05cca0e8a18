package record

import "txdb/file"

// Layout describes where each field of a record lives within a slot.
// A slot starts with an int flag telling whether it is in use.
type Layout struct {
	schema   *Schema
	offsets  map[string]int32
	slotSize int32
}

// NewLayout computes the layout of records of the schema. The TxNumField is
// added when the schema lacks it.
func NewLayout(schema *Schema) *Layout {
	if !schema.HasField(TxNumField) {
		withTxNum := NewSchema()
		withTxNum.AddAll(schema)
		withTxNum.AddIntField(TxNumField)
		schema = withTxNum
	}

	offsets := make(map[string]int32)
	pos := file.Int32Size // in-use flag
	for _, fieldName := range schema.fields {
		offsets[fieldName] = pos
		pos += lengthInBytes(schema, fieldName)
	}
	return &Layout{
		schema:   schema,
		offsets:  offsets,
		slotSize: pos,
	}
}

func (l *Layout) Schema() *Schema {
	return l.schema
}

// Offset returns the offset of the field within a slot.
func (l *Layout) Offset(fieldName string) int32 {
	return l.offsets[fieldName]
}

func (l *Layout) SlotSize() int32 {
	return l.slotSize
}

// SlotsPerBlock returns how many slots fit in a block of the given size.
func (l *Layout) SlotsPerBlock(blockSize int32) int32 {
	return blockSize / l.slotSize
}

func lengthInBytes(schema *Schema, fieldName string) int32 {
	fieldType := schema.FieldType(fieldName)
	switch fieldType {
	case Integer:
		return file.Int32Size
	case Varchar:
		return file.MaxLength(schema.FieldLength(fieldName))
	default:
		return 0
	}
}
