package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"txdb/config"
	"txdb/logging"
	"txdb/server"
)

var (
	configFile string
	dirArg     string
	blockSize  int32
	poolSize   int32
	maxWait    string
)

// loadConfig builds the configuration from the config file, if any, and the
// flags that were set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Dir = dirArg
	}
	if flags.Changed("block-size") {
		cfg.BlockSize = blockSize
	}
	if flags.Changed("buffers") {
		cfg.BufferPoolSize = poolSize
	}
	if flags.Changed("max-wait") {
		if err := cfg.MaxWait.UnmarshalText([]byte(maxWait)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.LoggingOptions()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDB(cmd *cobra.Command) (*server.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return server.Open(cfg)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "simpledb",
		Short:         "Inspect and exercise a simpledb storage directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "TOML config file")
	flags.StringVarP(&dirArg, "dir", "d", "simpledb", "database directory")
	flags.Int32Var(&blockSize, "block-size", config.DefaultBlockSize, "block size in bytes")
	flags.Int32Var(&poolSize, "buffers", config.DefaultBufferPoolSize, "number of buffers in the pool")
	flags.StringVar(&maxWait, "max-wait", config.DefaultMaxWait.String(), "how long to wait for a buffer or a lock")

	rootCmd.AddCommand(
		newRecoverCommand(),
		newLogDumpCommand(),
		newWorkloadCommand(),
	)

	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
