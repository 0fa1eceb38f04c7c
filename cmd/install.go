package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyber-syntax/my-unicorn/pkg/orchestrator"
)

var (
	installNoIcon    bool
	installNoVerify  bool
	installNoDesktop bool
)

var installCmd = &cobra.Command{
	Use:   "install <targets...>",
	Short: "Install one or more AppImages by catalog name, owner/repo, or GitHub URL",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcomes := orch.RunInstall(context.Background(), args, orchestrator.InstallOptions{
			NoIcon:      installNoIcon,
			NoVerify:    installNoVerify,
			NoDesktop:   installNoDesktop,
			Concurrency: concurrency,
		})
		return summarize(outcomes)
	},
}

func init() {
	installCmd.Flags().BoolVar(&installNoIcon, "no-icon", false, "Skip icon extraction/download")
	installCmd.Flags().BoolVar(&installNoVerify, "no-verify", false, "Skip checksum/digest verification")
	installCmd.Flags().BoolVar(&installNoDesktop, "no-desktop", false, "Skip desktop entry generation")
}

// summarize prints one status line per target (spec 7's "one summary
// line with status icon and message") and maps the first failure to a
// process exit code.
func summarize(outcomes []orchestrator.Outcome) error {
	var firstErr error
	for _, o := range outcomes {
		icon := "✓"
		msg := string(o.Status)
		switch o.Status {
		case orchestrator.StatusFailed:
			icon = "✗"
			msg = fmt.Sprintf("failed at %s: %v", o.Stage, o.Err)
			if firstErr == nil {
				firstErr = o.Err
			}
		case orchestrator.StatusAlreadyInstalled, orchestrator.StatusUpToDate:
			icon = "="
		}
		fmt.Fprintf(os.Stdout, "%s %s: %s\n", icon, o.Target, msg)
	}
	return firstErr
}
