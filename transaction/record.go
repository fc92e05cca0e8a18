package transaction

import (
	"fmt"

	"github.com/pkg/errors"

	"txdb/buffer"
	"txdb/file"
	"txdb/log"
)

// ErrUnknownLogRecord is returned when a log record carries an unknown type tag.
var ErrUnknownLogRecord = errors.New("unknown log record type")

type RecordType int32

const (
	Checkpoint RecordType = iota
	Start
	Commit
	Rollback
	SetInt
	SetString
)

func (t RecordType) String() string {
	switch t {
	case Checkpoint:
		return "CHECKPOINT"
	case Start:
		return "START"
	case Commit:
		return "COMMIT"
	case Rollback:
		return "ROLLBACK"
	case SetInt:
		return "SETINT"
	case SetString:
		return "SETSTRING"
	default:
		return fmt.Sprintf("RecordType(%d)", int32(t))
	}
}

// LogRecord is one of the records written by the recovery manager:
// *CheckpointRecord, *StartRecord, *CommitRecord, *RollbackRecord,
// *SetIntRecord or *SetStringRecord.
type LogRecord interface {
	Operator() RecordType
	// TxNumber returns the transaction that wrote the record, or -1 for a checkpoint.
	TxNumber() int32
	// Undo reverses the change described by the record on behalf of the
	// transaction txNum. Records that describe no change do nothing.
	Undo(bufferManager *buffer.Manager, txNum int32) error
	String() string
}

// updateRecord is implemented by records that carry the before-image of a field.
type updateRecord interface {
	LogRecord
	Target() (file.Block, int32)
	BeforeImage() log.Value
}

// ParseLogRecord decodes a record read from the log.
func ParseLogRecord(rec *log.Record) (LogRecord, error) {
	op, err := rec.NextInt()
	if err != nil {
		return nil, err
	}

	switch RecordType(op) {
	case Checkpoint:
		return &CheckpointRecord{}, nil
	case Start:
		txNum, err := rec.NextInt()
		if err != nil {
			return nil, err
		}
		return &StartRecord{txNum: txNum}, nil
	case Commit:
		txNum, err := rec.NextInt()
		if err != nil {
			return nil, err
		}
		return &CommitRecord{txNum: txNum}, nil
	case Rollback:
		txNum, err := rec.NextInt()
		if err != nil {
			return nil, err
		}
		return &RollbackRecord{txNum: txNum}, nil
	case SetInt:
		return newSetIntRecord(rec)
	case SetString:
		return newSetStringRecord(rec)
	default:
		return nil, errors.Wrapf(ErrUnknownLogRecord, "tag %d", op)
	}
}

type CheckpointRecord struct{}

func (r *CheckpointRecord) Operator() RecordType {
	return Checkpoint
}

func (r *CheckpointRecord) TxNumber() int32 {
	return -1
}

func (r *CheckpointRecord) Undo(*buffer.Manager, int32) error {
	// Do nothing because a checkpoint record contains no undo information.
	return nil
}

func (r *CheckpointRecord) String() string {
	return "<CHECKPOINT>"
}

func WriteCheckpointRecordToLog(logManager *log.Manager) (int32, error) {
	return logManager.Append(log.Int(int32(Checkpoint)))
}

type StartRecord struct {
	txNum int32
}

func (r *StartRecord) Operator() RecordType {
	return Start
}

func (r *StartRecord) TxNumber() int32 {
	return r.txNum
}

func (r *StartRecord) Undo(*buffer.Manager, int32) error {
	// Do nothing because a start record contains no undo information.
	return nil
}

func (r *StartRecord) String() string {
	return fmt.Sprintf("<START %d>", r.txNum)
}

func WriteStartRecordToLog(logManager *log.Manager, txNum int32) (int32, error) {
	return logManager.Append(log.Int(int32(Start)), log.Int(txNum))
}

type CommitRecord struct {
	txNum int32
}

func (r *CommitRecord) Operator() RecordType {
	return Commit
}

func (r *CommitRecord) TxNumber() int32 {
	return r.txNum
}

func (r *CommitRecord) Undo(*buffer.Manager, int32) error {
	// Do nothing because a commit record contains no undo information.
	return nil
}

func (r *CommitRecord) String() string {
	return fmt.Sprintf("<COMMIT %d>", r.txNum)
}

func WriteCommitRecordToLog(logManager *log.Manager, txNum int32) (int32, error) {
	return logManager.Append(log.Int(int32(Commit)), log.Int(txNum))
}

type RollbackRecord struct {
	txNum int32
}

func (r *RollbackRecord) Operator() RecordType {
	return Rollback
}

func (r *RollbackRecord) TxNumber() int32 {
	return r.txNum
}

func (r *RollbackRecord) Undo(*buffer.Manager, int32) error {
	// Do nothing because a rollback record contains no undo information.
	return nil
}

func (r *RollbackRecord) String() string {
	return fmt.Sprintf("<ROLLBACK %d>", r.txNum)
}

func WriteRollbackRecordToLog(logManager *log.Manager, txNum int32) (int32, error) {
	return logManager.Append(log.Int(int32(Rollback)), log.Int(txNum))
}

// readTarget decodes the transaction number, block and offset shared by
// SETINT and SETSTRING records.
func readTarget(rec *log.Record) (txNum int32, block file.Block, offset int32, err error) {
	if txNum, err = rec.NextInt(); err != nil {
		return
	}
	filename, err := rec.NextString()
	if err != nil {
		return
	}
	blockNum, err := rec.NextInt()
	if err != nil {
		return
	}
	block = file.NewBlock(filename, blockNum)
	offset, err = rec.NextInt()
	return
}

// SetIntRecord holds the value an int field had before a transaction changed it.
type SetIntRecord struct {
	txNum  int32
	offset int32
	val    int32
	block  file.Block
}

func newSetIntRecord(rec *log.Record) (*SetIntRecord, error) {
	txNum, block, offset, err := readTarget(rec)
	if err != nil {
		return nil, err
	}

	val, err := rec.NextInt()
	if err != nil {
		return nil, err
	}

	return &SetIntRecord{
		txNum:  txNum,
		offset: offset,
		val:    val,
		block:  block,
	}, nil
}

func (r *SetIntRecord) Operator() RecordType {
	return SetInt
}

func (r *SetIntRecord) TxNumber() int32 {
	return r.txNum
}

func (r *SetIntRecord) Target() (file.Block, int32) {
	return r.block, r.offset
}

func (r *SetIntRecord) BeforeImage() log.Value {
	return log.Int(r.val)
}

// Undo pins the block, restores the saved value and unpins it. The restore
// is not logged.
func (r *SetIntRecord) Undo(bufferManager *buffer.Manager, txNum int32) error {
	return undo(bufferManager, r.block, txNum, func(p *file.Page) error {
		return p.WriteInt32At(r.offset, r.val)
	})
}

func (r *SetIntRecord) String() string {
	return fmt.Sprintf("<SETINT %d %s %d %d>", r.txNum, r.block, r.offset, r.val)
}

func WriteSetIntRecordToLog(logManager *log.Manager, txNum int32, block file.Block, offset int32, val int32) (int32, error) {
	return logManager.Append(
		log.Int(int32(SetInt)),
		log.Int(txNum),
		log.String(block.Filename()),
		log.Int(block.Number()),
		log.Int(offset),
		log.Int(val),
	)
}

// SetStringRecord holds the value a string field had before a transaction changed it.
type SetStringRecord struct {
	txNum  int32
	offset int32
	val    string
	block  file.Block
}

func newSetStringRecord(rec *log.Record) (*SetStringRecord, error) {
	txNum, block, offset, err := readTarget(rec)
	if err != nil {
		return nil, err
	}

	val, err := rec.NextString()
	if err != nil {
		return nil, err
	}

	return &SetStringRecord{
		txNum:  txNum,
		offset: offset,
		val:    val,
		block:  block,
	}, nil
}

func (r *SetStringRecord) Operator() RecordType {
	return SetString
}

func (r *SetStringRecord) TxNumber() int32 {
	return r.txNum
}

func (r *SetStringRecord) Target() (file.Block, int32) {
	return r.block, r.offset
}

func (r *SetStringRecord) BeforeImage() log.Value {
	return log.String(r.val)
}

// Undo pins the block, restores the saved value and unpins it. The restore
// is not logged.
func (r *SetStringRecord) Undo(bufferManager *buffer.Manager, txNum int32) error {
	return undo(bufferManager, r.block, txNum, func(p *file.Page) error {
		return p.WriteStringAt(r.offset, r.val)
	})
}

func (r *SetStringRecord) String() string {
	return fmt.Sprintf("<SETSTRING %d %s %d %s>", r.txNum, r.block, r.offset, r.val)
}

func WriteSetStringRecordToLog(logManager *log.Manager, txNum int32, block file.Block, offset int32, val string) (int32, error) {
	return logManager.Append(
		log.Int(int32(SetString)),
		log.Int(txNum),
		log.String(block.Filename()),
		log.Int(block.Number()),
		log.Int(offset),
		log.String(val),
	)
}

func undo(bufferManager *buffer.Manager, block file.Block, txNum int32, restore func(*file.Page) error) error {
	buf, err := bufferManager.Pin(block)
	if err != nil {
		return err
	}
	defer bufferManager.Unpin(buf)

	if err := restore(buf.Contents()); err != nil {
		return errors.Wrapf(err, "undo on %s", block)
	}
	buf.SetModified(txNum, -1)
	return nil
}
