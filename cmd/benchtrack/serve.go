package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"benchtrack/internal/watch"
	"benchtrack/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts the HTTP API on server.addr:

  POST /api/v1/suites/:suite/entries         ingest one entry
  GET  /api/v1/suites                        list suites
  GET  /api/v1/suites/:suite/latest          latest entry (?classify=true)
  GET  /api/v1/suites/:suite/metrics/:metric metric series (?since=&until=&offset=&limit=)
  GET  /api/v1/suites/:suite/compare         compare two entries (?base=&head=)
  GET  /data.js, /data.json                  whole history
  GET  /healthz, /metrics

With --watch, JSON files dropped into watch.dir are ingested as well.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default server.addr)")
	serveCmd.Flags().Bool("watch", false, "Also ingest files dropped into watch.dir")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, appOptions{notify: true, mirror: true, metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString("server.addr")
	}
	srv := web.NewServer(a.store,
		web.WithMetrics(a.metrics),
		web.WithGatherer(a.registry),
		web.WithAlertRatio(a.settings.AlertRatio),
		web.WithLogger(a.logger),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, addr) })

	if withWatch, _ := cmd.Flags().GetBool("watch"); withWatch {
		w, err := watch.New(watch.Config{
			Dir:      a.settings.Watch.Dir,
			Interval: a.settings.Watch.Interval,
			Debounce: defaultDebounce,
		}, a, a.logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}
