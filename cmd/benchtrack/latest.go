package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/regression"
	"benchtrack/internal/utils"
)

var latestCmd = &cobra.Command{
	Use:   "latest <suite>",
	Short: "Print the most recent entry of a suite",
	Args:  cobra.ExactArgs(1),
	RunE:  runLatest,
}

func init() {
	rootCmd.AddCommand(latestCmd)
	latestCmd.Flags().Bool("classify", false, "Include the regression classification")
	latestCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
}

type latestView struct {
	Suite          string             `json:"suite"`
	Entry          benchmark.Entry    `json:"entry"`
	Classification *regression.Report `json:"classification,omitempty"`
}

func runLatest(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := checkFormat(output); err != nil {
		return err
	}
	suite := args[0]

	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	entry, ok := a.store.Latest(suite)
	if !ok {
		return fmt.Errorf("suite %q has no entries", suite)
	}
	view := latestView{Suite: suite, Entry: entry}
	if classify, _ := cmd.Flags().GetBool("classify"); classify {
		if report, ok := a.store.Classify(suite, ""); ok {
			view.Classification = &report
		}
	}

	return render(cmd.OutOrStdout(), output, view, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Suite:\t%s\n", suite)
		fmt.Fprintf(tw, "Commit:\t%s\n", entry.Commit.ID)
		if entry.Commit.URL != "" {
			fmt.Fprintf(tw, "URL:\t%s\n", entry.Commit.URL)
		}
		fmt.Fprintf(tw, "Recorded:\t%s\n", entry.RecordedAt.Format(time.RFC3339))
		fmt.Fprintf(tw, "Tool:\t%s\n\n", entry.Tool)
		if view.Classification != nil {
			printReport(tw, view.Classification.Metrics)
			return
		}
		fmt.Fprintln(tw, "METRIC\tVALUE")
		for _, s := range entry.Samples {
			fmt.Fprintf(tw, "%s\t%s\n", s.Name, utils.FormatValue(s.Value, s.Unit))
		}
	})
}
