package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"benchtrack/internal/telemetry"
	"benchtrack/internal/watch"
)

const defaultDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest benchmark files dropped into a directory",
	Long: `Watches dir (default watch.dir) for *.json files of the form
  {"suite": "...", "entry": {...}}   or   {"suite": "...", "entries": [...]}
and ingests them. Without "suite" the file name is used. Ingested files move to
dir/processed, rejected ones to dir/failed with a .err file giving the reason.

Write files under a temporary name and rename them into place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "Rescan interval (default watch.interval)")
	watchCmd.Flags().Duration("debounce", defaultDebounce, "Wait this long after the last write to a file")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, appOptions{notify: true, mirror: true, metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := watch.Config{Dir: a.settings.Watch.Dir, Interval: a.settings.Watch.Interval}
	if len(args) == 1 {
		cfg.Dir = args[0]
	}
	if iv, _ := cmd.Flags().GetDuration("interval"); iv > 0 {
		cfg.Interval = iv
	}
	cfg.Debounce, _ = cmd.Flags().GetDuration("debounce")

	w, err := watch.New(cfg, a, a.logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(ctx) })
	if port := a.settings.MetricsPort; port > 0 {
		g.Go(func() error {
			if err := telemetry.StartMetricsServer(ctx, fmt.Sprintf(":%d", port), a.registry); err != nil {
				a.logger.Warn("Metrics server stopped", "port", port, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}
