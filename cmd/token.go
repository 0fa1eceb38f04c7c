package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
)

var (
	tokenSave   bool
	tokenRemove bool
	tokenCheck  bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the GitHub personal access token stored in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case tokenSave:
			fmt.Fprint(os.Stdout, "GitHub token: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return apperrors.Wrap(apperrors.KindAuth, "", err)
			}
			if err := tokenStore.Set(strings.TrimSpace(line)); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "token saved")
			return nil

		case tokenRemove:
			if err := tokenStore.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "token removed")
			return nil

		case tokenCheck:
			if _, ok := tokenStore.Get(); ok {
				fmt.Fprintln(os.Stdout, "token present")
			} else {
				fmt.Fprintln(os.Stdout, "no token stored")
			}
			return nil

		default:
			return cmd.Help()
		}
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenSave, "save", false, "Prompt for and store a GitHub token")
	tokenCmd.Flags().BoolVar(&tokenRemove, "remove", false, "Delete the stored token")
	tokenCmd.Flags().BoolVar(&tokenCheck, "check", false, "Report whether a token is currently stored")
}
