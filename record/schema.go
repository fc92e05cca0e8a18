package record

type FieldType int32

const (
	Integer FieldType = iota
	Varchar
)

// TxNumField is the hidden int field that holds the number of the last
// transaction that wrote a record. Every layout carries it.
const TxNumField = "_txnum"

type fieldInfo struct {
	fieldType FieldType
	length    int32
}

// Schema is the record schema of a table: the name and type of each field,
// and the maximum length of each varchar field.
type Schema struct {
	fields []string
	info   map[string]fieldInfo
}

func NewSchema() *Schema {
	return &Schema{
		info: make(map[string]fieldInfo),
	}
}

func (s *Schema) AddField(fieldName string, fieldType FieldType, length int32) {
	if _, exist := s.info[fieldName]; !exist {
		s.fields = append(s.fields, fieldName)
	}
	s.info[fieldName] = fieldInfo{
		fieldType: fieldType,
		length:    length,
	}
}

func (s *Schema) AddIntField(fieldName string) {
	s.AddField(fieldName, Integer, 0)
}

// AddStringField adds a varchar field holding at most length characters.
func (s *Schema) AddStringField(fieldName string, length int32) {
	s.AddField(fieldName, Varchar, length)
}

// Add copies a field from another schema.
func (s *Schema) Add(fieldName string, schema *Schema) {
	fieldType := schema.FieldType(fieldName)
	length := schema.FieldLength(fieldName)
	s.AddField(fieldName, fieldType, length)
}

// AddAll copies every field of another schema.
func (s *Schema) AddAll(schema *Schema) {
	for _, fieldName := range schema.fields {
		s.Add(fieldName, schema)
	}
}

// Fields returns the field names in the order they were added.
func (s *Schema) Fields() []string {
	return s.fields
}

func (s *Schema) HasField(fieldName string) bool {
	_, exist := s.info[fieldName]
	return exist
}

func (s *Schema) FieldType(fieldName string) FieldType {
	return s.info[fieldName].fieldType
}

func (s *Schema) FieldLength(fieldName string) int32 {
	return s.info[fieldName].length
}
