package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"benchtrack/internal/utils"
)

var suitesCmd = &cobra.Command{
	Use:   "suites",
	Short: "List the suites in the history",
	Args:  cobra.NoArgs,
	RunE:  runSuites,
}

func init() {
	rootCmd.AddCommand(suitesCmd)
	suitesCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
}

func runSuites(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := checkFormat(output); err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	suites := a.store.Suites()
	if len(suites) == 0 && output == formatTable {
		fmt.Fprintln(cmd.OutOrStdout(), "No suites recorded yet.")
		return nil
	}

	now := time.Now()
	return render(cmd.OutOrStdout(), output, suites, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "SUITE\tENTRIES\tMETRICS\tLAST UPDATE")
		for _, s := range suites {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.Entries, strings.Join(s.Metrics, ", "), utils.FormatSince(s.LastUpdate, now))
		}
	})
}
