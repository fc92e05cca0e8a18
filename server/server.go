package server

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"txdb/buffer"
	"txdb/config"
	"txdb/file"
	"txdb/log"
	"txdb/logging"
	"txdb/transaction"
)

// DB wires together the file, log, buffer and transaction managers of one
// database directory.
type DB struct {
	config        *config.Config
	fileManager   *file.Manager
	logManager    *log.Manager
	bufferManager *buffer.Manager
	txManager     *transaction.Manager
}

// Open opens the database in cfg.Dir, creating it if it does not exist.
// An existing database is recovered before Open returns.
func Open(cfg *config.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := newDB(cfg)
	if err != nil {
		return nil, err
	}

	l := logging.L().With(zap.String("dir", cfg.Dir))
	if db.fileManager.IsNew() {
		l.Info("creating new database")
		return db, nil
	}

	l.Info("recovering existing database")
	if err := db.txManager.Recover(); err != nil {
		db.fileManager.Close()
		return nil, errors.WithMessage(err, "recovery failed")
	}
	return db, nil
}

func newDB(cfg *config.Config) (*DB, error) {
	fileManager, err := file.NewManager(cfg.Dir, cfg.BlockSize)
	if err != nil {
		return nil, err
	}

	logManager, err := log.NewManager(fileManager, cfg.LogFile)
	if err != nil {
		fileManager.Close()
		return nil, err
	}

	maxWait := cfg.MaxWait.Duration
	bufferManager := buffer.NewManagerWithWait(fileManager, logManager, cfg.BufferPoolSize, maxWait)

	return &DB{
		config:        cfg,
		fileManager:   fileManager,
		logManager:    logManager,
		bufferManager: bufferManager,
		txManager:     transaction.NewManager(fileManager, logManager, bufferManager, maxWait),
	}, nil
}

// NewTx begins a transaction.
func (db *DB) NewTx() (*transaction.Transaction, error) {
	return db.txManager.Begin()
}

// Close closes the database files. Transactions still running are not
// rolled back; the next Open recovers them.
func (db *DB) Close() error {
	if n := db.txManager.Active(); n > 0 {
		logging.L().Warn("closing database with running transactions", zap.Int("active", n))
	}
	return db.fileManager.Close()
}

func (db *DB) Config() *config.Config {
	return db.config
}

func (db *DB) FileManager() *file.Manager {
	return db.fileManager
}

func (db *DB) LogManager() *log.Manager {
	return db.logManager
}

func (db *DB) BufferManager() *buffer.Manager {
	return db.bufferManager
}

func (db *DB) TxManager() *transaction.Manager {
	return db.txManager
}
