package file

import "fmt"

// EndOfFile is the block number of the synthetic block used to lock the end
// of a file. It never refers to data on disk.
const EndOfFile int32 = -1

// Block identifies a fixed-size region of a file. It is a value type and can
// be compared with == or used as a map key.
type Block struct {
	filename string
	number   int32
}

func NewBlock(filename string, number int32) Block {
	return Block{filename, number}
}

func (b Block) Filename() string {
	return b.filename
}

func (b Block) Number() int32 {
	return b.number
}

// IsZero reports whether b is the zero Block, which buffers use to mean
// "not assigned".
func (b Block) IsZero() bool {
	return b == Block{}
}

func (b Block) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.filename, b.number)
}
