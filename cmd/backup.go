package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
	"github.com/cyber-syntax/my-unicorn/pkg/utils"
)

var (
	backupRestoreLast    bool
	backupRestoreVersion string
	backupListBackups    bool
	backupInfo           bool
	backupCleanup        bool
	backupMigrate        bool
)

var backupCmd = &cobra.Command{
	Use:   "backup <app>",
	Short: "Inspect, restore, or prune an app's retained backups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := args[0]
		backupDir := orch.Paths.BackupAppDir(app)

		switch {
		case backupInfo:
			entries, err := orch.Backup.List(backupDir)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(os.Stdout, utils.FormatFileInfo(filepath.Join(backupDir, e.Filename)))
			}
			return nil

		case backupListBackups:
			entries, err := orch.Backup.List(backupDir)
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Fprintln(os.Stdout, string(data))
			return nil

		case backupRestoreLast, backupRestoreVersion != "":
			state, err := orch.Apps.LoadAppRaw(app)
			if err != nil {
				return err
			}
			restored, err := orch.Backup.Restore(backupDir, state.State.InstalledPath, backupRestoreVersion)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "restored %s to version %s\n", app, restored)
			return nil

		case backupCleanup:
			// Create() prunes to max_backup on every call. An explicit
			// cleanup runs Create() for the installed version, so it also
			// copies the current AppImage into the backup set (replacing
			// any existing entry for that version) before the prune.
			state, err := orch.Apps.LoadAppRaw(app)
			if err != nil {
				return err
			}
			if err := orch.Backup.Create(backupDir, state.State.InstalledPath, state.State.Version); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "pruned backups for %s\n", app)
			return nil

		case backupMigrate:
			return apperrors.New(apperrors.KindUsage, app, "no legacy backup layout to migrate")

		default:
			return cmd.Help()
		}
	},
}

func init() {
	backupCmd.Flags().BoolVar(&backupRestoreLast, "restore-last", false, "Restore the most recently retained backup")
	backupCmd.Flags().StringVar(&backupRestoreVersion, "restore-version", "", "Restore a specific backed-up version")
	backupCmd.Flags().BoolVar(&backupListBackups, "list-backups", false, "List retained backup versions")
	backupCmd.Flags().BoolVar(&backupInfo, "info", false, "Print size/permission details for each retained backup file")
	backupCmd.Flags().BoolVar(&backupCleanup, "cleanup", false, "Force a retention prune pass")
	backupCmd.Flags().BoolVar(&backupMigrate, "migrate", false, "Migrate a legacy backup layout (no-op: no legacy layout predates v2)")
}
