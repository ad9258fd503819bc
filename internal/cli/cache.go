package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/decode/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched-document cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached feed and article body",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd, nil)
		if err != nil {
			return err
		}

		c := cache.New(cfg.Cache)
		if c == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled")
			return nil
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache %s\n", cfg.Cache.DiskDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
