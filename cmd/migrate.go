package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate every v1 app state file to the v2 hybrid format",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := orch.Apps.MigrateAll()
		if err != nil {
			return err
		}
		for _, r := range results {
			switch {
			case r.Migrated:
				fmt.Fprintf(os.Stdout, "✓ %s: migrated (backup at %s)\n", r.App, r.BackupPath)
			case r.Reason != "":
				fmt.Fprintf(os.Stdout, "= %s: %s\n", r.App, r.Reason)
			}
		}
		return nil
	},
}
