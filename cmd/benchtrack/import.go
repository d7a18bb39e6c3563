package main

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"benchtrack/internal/benchmark"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load an existing data.js or JSON history into the store",
	Long: `Ingests every entry of a data.js (window.BENCHMARK_DATA = {...}) or plain JSON
history into the configured store. Suites are imported in parallel, entries of a
suite in recorded order. Entries already stored are skipped, so an interrupted
import can simply be run again.

Alerts are not sent for imported entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Int("jobs", 4, "Suites imported concurrently")
	importCmd.Flags().Bool("mirror", false, "Also write imported entries to InfluxDB when influx.enabled is set")
}

func runImport(cmd *cobra.Command, args []string) error {
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1")
	}
	mirror, _ := cmd.Flags().GetBool("mirror")

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	h, err := benchmark.DecodeHistory(f)
	f.Close()
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), appOptions{mirror: mirror, repoURL: h.RepoURL})
	if err != nil {
		return err
	}
	defer a.Close()

	suites := make([]string, 0, len(h.Entries))
	for name := range h.Entries {
		suites = append(suites, name)
	}
	sort.Strings(suites)

	var created, dupes atomic.Int64
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for _, suite := range suites {
		entries := slices.Clone(h.Entries[suite])
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].RecordedAt.Before(entries[j].RecordedAt) })

		g.Go(func() error {
			for _, e := range entries {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := a.store.Ingest(ctx, suite, e)
				if err != nil {
					return fmt.Errorf("suite %q, commit %s: %w", suite, shortCommit(e.Commit.ID), err)
				}
				if res.Duplicate {
					dupes.Add(1)
				} else {
					created.Add(1)
				}
			}
			return nil
		})
	}
	err = g.Wait()

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries (%d already stored) across %d suites\n", created.Load(), dupes.Load(), len(suites))
	return err
}
