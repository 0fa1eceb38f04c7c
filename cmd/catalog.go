package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	catalogAvailable bool
	catalogInfo      string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List or inspect bundled catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if catalogInfo != "" {
			entry, err := orch.Apps.LoadCatalogEntry(catalogInfo)
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(entry, "", "  ")
			fmt.Fprintln(os.Stdout, string(data))
			return nil
		}

		names, err := orch.Apps.ListCatalog()
		if err != nil {
			return err
		}

		installed := map[string]bool{}
		if catalogAvailable {
			list, err := orch.Apps.ListInstalled()
			if err != nil {
				return err
			}
			for _, n := range list {
				installed[n] = true
			}
		}

		for _, n := range names {
			if catalogAvailable && installed[n] {
				continue
			}
			fmt.Fprintln(os.Stdout, n)
		}
		return nil
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogAvailable, "available", false, "List only catalog entries not yet installed")
	catalogCmd.Flags().StringVar(&catalogInfo, "info", "", "Print the full catalog entry for a single app")
}
