// Package logging holds the process-wide structured logger.
//
// The logger is a no-op until Init is called, so library code can log
// unconditionally and tests stay quiet. Subsystems obtain loggers through L,
// WithTx or WithBlock rather than building their own.
package logging

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process-wide logger.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "json" or "console".
	Format string
	// Output is "stderr", "stdout" or a file path. Files are rotated.
	Output string
	// MaxSizeMB is the rotation threshold for file output.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// Init replaces the process-wide logger.
func Init(opts Options) error {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", opts.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch opts.Format {
	case "", "console":
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return errors.Errorf("invalid log format %q", opts.Format)
	}

	var sink zapcore.WriteSyncer
	switch opts.Output {
	case "", "stderr":
		sink = zapcore.Lock(os.Stderr)
	case "stdout":
		sink = zapcore.Lock(os.Stdout)
	default:
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Output,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		})
	}

	Set(zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller()))
	return nil
}

// Set installs l as the process-wide logger. A nil l restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

// L returns the process-wide logger.
func L() *zap.Logger {
	return global.Load()
}

// WithTx returns a logger tagged with a transaction number.
func WithTx(txNum int32) *zap.Logger {
	return L().With(zap.Int32("tx", txNum))
}

// WithBlock returns a logger tagged with a block in its textual form.
func WithBlock(block interface{ String() string }) *zap.Logger {
	return L().With(zap.Stringer("block", block))
}

// Sync flushes buffered log entries.
func Sync() error {
	return L().Sync()
}
