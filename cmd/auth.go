package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var authStatus bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Report authentication and GitHub rate-limit status",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, hasToken := tokenStore.Get()
		state := authMgr.State()

		fmt.Fprintf(os.Stdout, "authenticated: %t\n", hasToken)
		if state.Limit > 0 {
			fmt.Fprintf(os.Stdout, "rate limit: %d/%d remaining, resets at %s\n", state.Remaining, state.Limit, state.ResetAt.Format("15:04:05 MST"))
		} else {
			fmt.Fprintln(os.Stdout, "rate limit: not yet observed this run")
		}
		return nil
	},
}

func init() {
	authCmd.Flags().BoolVar(&authStatus, "status", false, "Show authentication and rate-limit status (default behavior)")
}
