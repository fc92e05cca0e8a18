package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Open the database, undoing unfinished transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if db.FileManager().IsNew() {
				fmt.Fprintf(cmd.OutOrStdout(), "created new database in %s\n", db.Config().Dir)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recovered %s\n", db.Config().Dir)
			return nil
		},
	}
}
