package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cyber-syntax/my-unicorn/pkg/orchestrator"
)

var removeKeepConfig bool

var removeCmd = &cobra.Command{
	Use:   "remove <apps...>",
	Short: "Uninstall one or more apps",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var outcomes []orchestrator.Outcome
		for _, app := range args {
			outcomes = append(outcomes, orch.RunRemove(app, orchestrator.RemoveOptions{KeepConfig: removeKeepConfig}))
		}
		return summarize(outcomes)
	},
}

func init() {
	removeCmd.Flags().BoolVar(&removeKeepConfig, "keep-config", false, "Keep the app's state file for a later reinstall")
}
