package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/utils"
)

var compareCmd = &cobra.Command{
	Use:   "compare <suite>",
	Short: "Compare two entries of a suite metric by metric",
	Long: `Compares the head entry with the base entry (by default the last two entries)
and prints each shared metric's change. The ratio is how many times worse head
is under the suite's polarity; metrics above --alert-ratio are flagged.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().String("base", "", "Base commit (default: the entry before head)")
	compareCmd.Flags().String("head", "", "Head commit (default: the latest entry)")
	compareCmd.Flags().Float64("alert-ratio", 0, "Flag metrics this many times worse (default alert_ratio)")
	compareCmd.Flags().Bool("fail-on-alert", false, "Exit with an error when any metric is flagged")
	compareCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
}

type compareView struct {
	Suite       string                 `json:"suite"`
	Base        string                 `json:"base"`
	Head        string                 `json:"head"`
	AlertRatio  float64                `json:"alertRatio"`
	Comparisons []benchmark.Comparison `json:"comparisons"`
	Alert       bool                   `json:"alert"`
}

func runCompare(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := checkFormat(output); err != nil {
		return err
	}
	ratio, _ := cmd.Flags().GetFloat64("alert-ratio")
	if ratio <= 0 {
		ratio = viper.GetFloat64("alert_ratio")
	}
	suite := args[0]

	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	series, ok := a.store.Series(suite)
	if !ok {
		return fmt.Errorf("suite %q has no entries", suite)
	}
	headID, _ := cmd.Flags().GetString("head")
	baseID, _ := cmd.Flags().GetString("base")
	head := indexOf(series.Entries, headID, len(series.Entries)-1)
	if head < 0 {
		return fmt.Errorf("head commit %q not found in suite %q", headID, suite)
	}
	base := indexOf(series.Entries, baseID, head-1)
	if base < 0 {
		if baseID == "" {
			return fmt.Errorf("suite %q has no entry before %s to compare with", suite, shortCommit(series.Entries[head].Commit.ID))
		}
		return fmt.Errorf("base commit %q not found in suite %q", baseID, suite)
	}

	prev, curr := series.Entries[base], series.Entries[head]
	view := compareView{
		Suite:       suite,
		Base:        prev.Commit.ID,
		Head:        curr.Commit.ID,
		AlertRatio:  ratio,
		Comparisons: benchmark.Compare(prev, curr, ratio),
	}
	for _, c := range view.Comparisons {
		view.Alert = view.Alert || c.Alert
	}

	err = render(cmd.OutOrStdout(), output, view, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s %s -> %s\n", headerStyle.Render(suite), shortCommit(view.Base), shortCommit(view.Head))
		fmt.Fprintln(tw, "METRIC\tBASE\tHEAD\tCHANGE\tRATIO\t")
		for _, c := range view.Comparisons {
			flag := ""
			if c.Alert {
				flag = regressedStyle.Render("ALERT")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\n", c.Name,
				utils.FormatValue(c.Prev, c.Unit), utils.FormatValue(c.Curr, c.Unit),
				utils.FormatPercent(c.PercentDiff), c.Ratio, flag)
		}
	})
	if err != nil {
		return err
	}

	if fail, _ := cmd.Flags().GetBool("fail-on-alert"); fail && view.Alert {
		return fmt.Errorf("suite %q: metrics more than %.2fx worse than the previous entry", suite, ratio)
	}
	return nil
}

// indexOf returns the newest entry of commitID, or def when commitID is empty.
// It returns -1 when nothing matches.
func indexOf(entries []benchmark.Entry, commitID string, def int) int {
	if commitID == "" {
		if def < 0 || def >= len(entries) {
			return -1
		}
		return def
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Commit.ID == commitID {
			return i
		}
	}
	return -1
}
