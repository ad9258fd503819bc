package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/decode/internal/util"
	"github.com/ppiankov/decode/internal/validate"
)

var feedsJSON bool

// feedsCmd represents the feeds command
var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List the configured news feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd, nil)
		if err != nil {
			return err
		}
		for _, u := range cfg.Feeds.URLs {
			fmt.Fprintln(cmd.OutOrStdout(), u)
		}
		return nil
	},
}

var feedsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every configured feed is reachable and parses",
	Long: `Check fetches every configured feed, parses it and reports the HTTP status,
entry count and age of the newest entry. Feeds whose newest entry is older
than the lookback window are flagged stale.

Example:
  decode feeds check
  decode feeds check --json`,
	Args: cobra.NoArgs,
	RunE: runFeedsCheck,
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	feedsCmd.AddCommand(feedsCheckCmd)
	feedsCheckCmd.Flags().BoolVar(&feedsJSON, "json", false, "print JSON")
}

func runFeedsCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	lookback := time.Duration(cfg.Feeds.LookbackDays) * 24 * time.Hour
	v := validate.NewFeedValidator(util.NewHTTPClient(cfg.HTTP), cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes,
		cfg.Concurrency.Workers, lookback, logger)
	results := v.Validate(cmd.Context(), cfg.Feeds.URLs)

	unhealthy := 0
	for _, r := range results {
		if !r.Healthy() {
			unhealthy++
		}
	}
	if err := writeFeedStatuses(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d feeds unhealthy", unhealthy, len(results))
	}
	return nil
}

func writeFeedStatuses(w io.Writer, results []validate.FeedStatus) error {
	if feedsJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCODE\tENTRIES\tNEWEST\tFEED")
	for _, r := range results {
		status := "ok"
		switch {
		case r.Dead:
			status = "dead"
		case !r.Healthy():
			status = "error"
		case r.Stale:
			status = "stale"
		}
		newest := "-"
		if r.Newest != nil {
			newest = r.Newest.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", status, r.StatusCode, r.Entries, newest, r.URL)
	}
	return tw.Flush()
}
