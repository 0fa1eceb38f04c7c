package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cyber-syntax/my-unicorn/pkg/orchestrator"
)

var (
	updateCheckOnly    bool
	updateRefreshCache bool
)

var updateCmd = &cobra.Command{
	Use:   "update [<targets...>]",
	Short: "Update installed apps; with no targets, checks every installed app",
	RunE: func(cmd *cobra.Command, args []string) error {
		outcomes := orch.RunUpdate(context.Background(), args, orchestrator.UpdateOptions{
			CheckOnly:    updateCheckOnly,
			RefreshCache: updateRefreshCache,
			Concurrency:  concurrency,
		})
		return summarize(outcomes)
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check-only", false, "Report available updates without installing them")
	updateCmd.Flags().BoolVar(&updateRefreshCache, "refresh-cache", false, "Bypass the release cache and re-fetch from GitHub")
}
