package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configShow bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved global configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := orch.Global
		fmt.Fprintf(os.Stdout, "config_version = %s\n", g.ConfigVersion)
		fmt.Fprintf(os.Stdout, "max_concurrent_downloads = %d\n", g.MaxConcurrentDownloads)
		fmt.Fprintf(os.Stdout, "max_backup = %d\n", g.MaxBackup)
		fmt.Fprintf(os.Stdout, "log_level = %s\n", g.LogLevel)
		fmt.Fprintf(os.Stdout, "console_log_level = %s\n", g.ConsoleLogLevel)
		fmt.Fprintf(os.Stdout, "\n[network]\n")
		fmt.Fprintf(os.Stdout, "retry_attempts = %d\n", g.Network.RetryAttempts)
		fmt.Fprintf(os.Stdout, "timeout_seconds = %d\n", g.Network.TimeoutSeconds)
		fmt.Fprintf(os.Stdout, "\n[directory]\n")
		fmt.Fprintf(os.Stdout, "storage = %s\n", g.Directory.Storage)
		fmt.Fprintf(os.Stdout, "backup = %s\n", g.Directory.Backup)
		fmt.Fprintf(os.Stdout, "icon = %s\n", g.Directory.Icon)
		fmt.Fprintf(os.Stdout, "settings = %s\n", g.Directory.Settings)
		fmt.Fprintf(os.Stdout, "logs = %s\n", g.Directory.Logs)
		fmt.Fprintf(os.Stdout, "cache = %s\n", g.Directory.Cache)
		fmt.Fprintf(os.Stdout, "tmp = %s\n", g.Directory.Tmp)
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&configShow, "show", false, "Print the resolved settings.conf (default behavior)")
}
