package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"txdb/logging"
)

const (
	DefaultBlockSize      int32 = 400
	DefaultBufferPoolSize int32 = 8
	DefaultLogFile              = "simpledb.log"
	DefaultMaxWait              = 10 * time.Second
)

// Duration is a time.Duration that decodes from strings such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is supplied once at system initialization.
type Config struct {
	Dir            string `toml:"dir"`
	BlockSize      int32  `toml:"block-size"`
	BufferPoolSize int32  `toml:"buffer-pool-size"`
	LogFile        string `toml:"log-file"`

	// MaxWait bounds how long a transaction waits for a buffer or a lock
	// before it is aborted.
	MaxWait Duration `toml:"max-wait"`

	LogLevel  string `toml:"log-level"`
	LogFormat string `toml:"log-format"`
	LogOutput string `toml:"log-output"`
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		Dir:            "simpledb",
		BlockSize:      DefaultBlockSize,
		BufferPoolSize: DefaultBufferPoolSize,
		LogFile:        DefaultLogFile,
		MaxWait:        Duration{DefaultMaxWait},
		LogLevel:       getLogLevel(),
		LogFormat:      "console",
		LogOutput:      "stderr",
	}
}

// Load reads a TOML file on top of the defaults.
func Load(path string) (*Config, error) {
	c := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Wrapf(err, "cannot load config %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("database directory must be set")
	}
	if c.BlockSize < 64 {
		return errors.Errorf("block size %d is too small", c.BlockSize)
	}
	if c.BufferPoolSize <= 0 {
		return errors.Errorf("buffer pool size must be greater than 0")
	}
	if c.LogFile == "" {
		return errors.New("log file must be set")
	}
	if c.MaxWait.Duration <= 0 {
		return errors.Errorf("max wait must be greater than 0")
	}
	return nil
}

// LoggingOptions maps the logging fields to logging.Options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		Output:     c.LogOutput,
		MaxSizeMB:  64,
		MaxBackups: 4,
	}
}
