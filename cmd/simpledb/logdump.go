package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"txdb/config"
	"txdb/file"
	"txdb/log"
	"txdb/transaction"
)

func newLogDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logdump",
		Short: "Print the log records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return dumpLog(cmd.OutOrStdout(), cfg)
		},
	}
}

// dumpLog prints every log record of the database in cfg.Dir, newest first.
// The directory is opened read-only and recovery is not run.
func dumpLog(w io.Writer, cfg *config.Config) error {
	fm, err := file.OpenReadOnly(cfg.Dir, cfg.BlockSize)
	if err != nil {
		return err
	}
	defer fm.Close()

	size, err := fm.Size(cfg.LogFile)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	iter, err := log.NewIterator(fm, file.NewBlock(cfg.LogFile, size-1))
	if err != nil {
		return err
	}
	for iter.HasNext() {
		rec, err := iter.Next()
		if err != nil {
			return err
		}
		record, err := transaction.ParseLogRecord(rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, record)
	}
	return nil
}
