package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/influx"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the whole history as data.js or JSON",
	Long: `Writes every suite to file, or to stdout when no file is given. Files ending in
.js get the window.BENCHMARK_DATA wrapper the chart page loads; anything else is
plain JSON. --format overrides the choice.

With --influx the history is also written to the configured InfluxDB bucket.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", "", "datajs or json (default: by file extension, json for stdout)")
	exportCmd.Flags().Bool("influx", false, "Backfill the history into InfluxDB")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	var asDataJS bool
	switch format {
	case "":
		asDataJS = path != "" && benchmark.IsDataJSPath(path)
	case "datajs":
		asDataJS = true
	case "json":
	default:
		return fmt.Errorf("unknown export format %q (want datajs or json)", format)
	}

	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.store.Snapshot()
	var buf bytes.Buffer
	if err := benchmark.EncodeHistory(&buf, snap, asDataJS); err != nil {
		return err
	}

	if path == "" {
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d suites to %s\n", len(snap.Entries), path)
	}

	if backfill, _ := cmd.Flags().GetBool("influx"); backfill {
		m := influx.NewMirror(influxConfig(a.settings), a.logger)
		defer m.Close()
		n, err := m.Backfill(cmd.Context(), snap)
		if err != nil {
			return fmt.Errorf("influx backfill failed after %d entries: %w", n, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Mirrored %d entries to InfluxDB bucket %s\n", n, a.settings.Influx.Bucket)
	}
	return nil
}
