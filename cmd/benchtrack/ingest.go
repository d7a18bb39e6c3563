package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
	"benchtrack/internal/utils"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <suite> [file]",
	Short: "Add one benchmark entry to a suite",
	Long: `Reads one entry from file (or stdin) and appends it to the suite.

With --format json (default) the input is an entry in the data.js shape:
  {"commit": {...}, "date": 1671678721461, "tool": "customSmallerIsBetter", "benches": [...]}
A missing date is stamped with the current time.

With --format gobench the input is 'go test -bench' output. The commit comes from
--commit (default $GITHUB_SHA) and every sample is smaller-is-better.

Ingesting the same entry twice is a no-op.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().String("format", "json", "Input format: json or gobench")
	ingestCmd.Flags().String("commit", "", "Commit id for gobench input (default $GITHUB_SHA)")
	ingestCmd.Flags().String("commit-url", "", "Commit URL for gobench input (default <repo-url>/commit/<id>)")
	ingestCmd.Flags().String("message", "", "Commit message for gobench input")
	ingestCmd.Flags().String("date", "", "Recorded-at time for gobench input (RFC3339, YYYY-MM-DD or epoch ms)")
	ingestCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
}

func runIngest(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if err := checkFormat(output); err != nil {
		return err
	}
	suite := args[0]

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 2 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	a, err := openApp(cmd.Context(), appOptions{notify: true, mirror: true})
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := parseEntryInput(cmd, raw, a.store.RepoURL(), time.Now())
	if err != nil {
		return err
	}

	res, err := a.Ingest(cmd.Context(), suite, entry)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), output, res, func(tw *tabwriter.Writer) {
		printIngestResult(tw, res)
	})
}

func parseEntryInput(cmd *cobra.Command, raw []byte, repoURL string, now time.Time) (benchmark.Entry, error) {
	format, _ := cmd.Flags().GetString("format")
	var entry benchmark.Entry

	switch format {
	case "json":
		if err := json.Unmarshal(raw, &entry); err != nil {
			return entry, fmt.Errorf("failed to decode entry: %w", err)
		}
	case "gobench":
		entry.Tool = benchmark.SmallerIsBetter
		entry.Samples = benchmark.ParseGoBench(string(raw))
		if len(entry.Samples) == 0 {
			return entry, errors.New("no benchmark results found in input")
		}

		commit, _ := cmd.Flags().GetString("commit")
		if commit == "" {
			commit = os.Getenv("GITHUB_SHA")
		}
		if commit == "" {
			return entry, errors.New("--commit is required for gobench input")
		}
		entry.Commit.ID = commit
		entry.Commit.Message, _ = cmd.Flags().GetString("message")
		entry.Commit.URL, _ = cmd.Flags().GetString("commit-url")
		if entry.Commit.URL == "" && repoURL != "" {
			entry.Commit.URL = strings.TrimSuffix(repoURL, "/") + "/commit/" + commit
		}

		if date, _ := cmd.Flags().GetString("date"); date != "" {
			t, err := utils.ParseTime(date, now)
			if err != nil {
				return entry, fmt.Errorf("invalid --date: %w", err)
			}
			entry.RecordedAt = t
		}
	default:
		return entry, fmt.Errorf("unknown input format %q (want json or gobench)", format)
	}

	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = now.UTC().Truncate(time.Millisecond)
	}
	return entry, nil
}

func printIngestResult(tw *tabwriter.Writer, res history.IngestResult) {
	status := "stored"
	if res.Duplicate {
		status = "already stored"
	}
	fmt.Fprintf(tw, "%s %s in %s at position %d\n", shortCommit(res.Entry.Commit.ID), status, res.Suite, res.Position)
	printReport(tw, res.Report.Metrics)
}

func shortCommit(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
