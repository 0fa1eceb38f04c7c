package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyber-syntax/my-unicorn/pkg/utils"
)

var (
	cacheStats bool
	cacheClear string
	cacheAll   bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the release metadata cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case cacheStats:
			stats, err := orch.Cache.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d entries, %s\n", stats.Entries, utils.FormatBytes(stats.TotalSize))
			return nil

		case cacheAll:
			if err := orch.Cache.ClearAll(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "cleared entire release cache")
			return nil

		case cacheClear != "":
			effective, _, err := orch.Apps.LoadAppEffective(cacheClear)
			if err != nil {
				return err
			}
			resolved, err := effective.Decode()
			if err != nil {
				return err
			}
			if err := orch.Cache.Clear(resolved.Source.Owner, resolved.Source.Repo); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "cleared cache entry for %s\n", cacheClear)
			return nil

		default:
			return cmd.Help()
		}
	},
}

func init() {
	cacheCmd.Flags().BoolVar(&cacheStats, "stats", false, "Print cache entry count and size")
	cacheCmd.Flags().StringVar(&cacheClear, "clear", "", "Clear the cache entry for a single installed app")
	cacheCmd.Flags().BoolVar(&cacheAll, "all", false, "With --clear, clear every cache entry instead of one app")
}
