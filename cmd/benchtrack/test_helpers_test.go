package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const baseMillis = int64(1671678721461)

// executeCommand runs the root command with fresh flags and configuration and
// returns what it wrote to stdout.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	resetFlags(rootCmd)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// storeArgs points the command at a fresh file store in a temp dir.
func storeArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--store-type", "file", "--store-path", filepath.Join(t.TempDir(), "data.json")}
}

func entryJSON(commit string, day int, value float64) string {
	return fmt.Sprintf(`{"commit":{"id":%q,"message":"bump","url":"https://github.com/occlum/occlum/commit/%s"},"date":%d,"tool":"customSmallerIsBetter","benches":[{"name":"Minimum latency","value":%g,"unit":"ms"}]}`,
		commit, commit, baseMillis+int64(day)*86400000, value)
}

// seed ingests one entry per value into suite, a day apart.
func seed(t *testing.T, store []string, suite string, values ...float64) {
	t.Helper()
	for i, v := range values {
		args := append([]string{"ingest", suite}, store...)
		_, err := executeCommand(t, entryJSON(fmt.Sprintf("c%d", i), i, v), args...)
		require.NoError(t, err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
