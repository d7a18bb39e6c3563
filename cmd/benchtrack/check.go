package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"benchtrack/internal/notify"
	"benchtrack/internal/regression"
	"benchtrack/internal/utils"
)

var checkCmd = &cobra.Command{
	Use:   "check <suite> [commit]",
	Short: "Classify an entry against the suite's recent history",
	Long: `Runs regression detection for the latest entry of the suite, or for the given
commit, and prints each metric's value, baseline and outcome.

A metric regressed when it is worse than the mean of the previous
detector.window values by more than detector.sensitivity standard deviations.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("fail-on-regression", false, "Exit with an error when any metric regressed")
	checkCmd.Flags().Bool("notify", false, "Send configured alerts when any metric regressed")
	checkCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
}

func runCheck(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := checkFormat(output); err != nil {
		return err
	}
	suite, commit := args[0], ""
	if len(args) == 2 {
		commit = args[1]
	}

	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	report, ok := a.store.Classify(suite, commit)
	if !ok {
		if commit != "" {
			return fmt.Errorf("suite %q has no entry for commit %s", suite, commit)
		}
		return fmt.Errorf("suite %q has no entries", suite)
	}

	err = render(cmd.OutOrStdout(), output, report, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s %s (%s)\n", headerStyle.Render(report.Suite), shortCommit(report.CommitID), report.RecordedAt.Format("2006-01-02 15:04:05"))
		printReport(tw, report.Metrics)
	})
	if err != nil {
		return err
	}

	if !report.Alert {
		return nil
	}
	if send, _ := cmd.Flags().GetBool("notify"); send {
		m := notify.NewManagerFromConfig(a.store.RepoURL(), a.logger)
		if !m.Enabled() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Warning: --notify given but no notifier is configured")
		} else if err := m.Send(cmd.Context(), notify.Alert{RepoURL: a.store.RepoURL(), Report: report}); err != nil {
			return fmt.Errorf("failed to send alert: %w", err)
		}
	}
	if fail, _ := cmd.Flags().GetBool("fail-on-regression"); fail {
		return fmt.Errorf("%d metric(s) regressed in suite %q", report.Count(regression.Regressed), suite)
	}
	return nil
}

func printReport(tw *tabwriter.Writer, results []regression.MetricResult) {
	fmt.Fprintln(tw, "METRIC\tVALUE\tBASELINE\tOUTCOME")
	for _, m := range results {
		baseline := "-"
		if m.Baseline.Count > 0 {
			baseline = fmt.Sprintf("%s ± %.3g (n=%d)", utils.FormatValue(m.Baseline.Mean, m.Unit), m.Baseline.StdDev, m.Baseline.Count)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, utils.FormatValue(m.Value, m.Unit), baseline, outcomeStyle(m.Outcome).Render(m.Outcome.String()))
	}
}
