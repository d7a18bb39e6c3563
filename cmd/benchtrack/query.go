package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"benchtrack/internal/history"
	"benchtrack/internal/utils"
)

var queryCmd = &cobra.Command{
	Use:   "query <suite> <metric>",
	Short: "Print the time series of one metric",
	Long: `Prints every value of metric in suite in recorded order.

--since and --until bound recordedAt inclusively and accept RFC3339, YYYY-MM-DD,
epoch milliseconds or a relative age like 7d or 12h. --offset and --limit then
page over the matching points.`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().String("since", "", "Only points recorded at or after this time")
	queryCmd.Flags().String("until", "", "Only points recorded at or before this time")
	queryCmd.Flags().Int("offset", 0, "Skip this many matching points")
	queryCmd.Flags().Int("limit", 0, "Return at most this many points (0 = all)")
	queryCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
}

func runQuery(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := checkFormat(output); err != nil {
		return err
	}
	rng, err := rangeFromFlags(cmd, time.Now())
	if err != nil {
		return err
	}
	suite, metric := args[0], args[1]

	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	points := []history.Point{}
	for p := range a.store.Query(cmd.Context(), suite, metric, rng) {
		points = append(points, p)
	}

	return render(cmd.OutOrStdout(), output, points, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "RECORDED\tCOMMIT\tVALUE")
		for _, p := range points {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.RecordedAt.Format(time.RFC3339), shortCommit(p.CommitID), utils.FormatValue(p.Value, p.Unit))
		}
	})
}

func rangeFromFlags(cmd *cobra.Command, now time.Time) (history.Range, error) {
	var rng history.Range
	var err error
	if v, _ := cmd.Flags().GetString("since"); v != "" {
		if rng.From, err = utils.ParseTime(v, now); err != nil {
			return rng, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if v, _ := cmd.Flags().GetString("until"); v != "" {
		if rng.To, err = utils.ParseTime(v, now); err != nil {
			return rng, fmt.Errorf("invalid --until: %w", err)
		}
	}
	rng.Offset, _ = cmd.Flags().GetInt("offset")
	rng.Limit, _ = cmd.Flags().GetInt("limit")
	if rng.Offset < 0 || rng.Limit < 0 {
		return rng, fmt.Errorf("--offset and --limit must not be negative")
	}
	return rng, nil
}
