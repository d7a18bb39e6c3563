package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"benchtrack/internal/config"
	"benchtrack/internal/telemetry"
)

var exit = os.Exit
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "benchtrack",
	Short: "Continuous benchmark history and regression tracking",
	Long: `benchtrack stores benchmark results per commit, one series per suite, and
classifies every new entry against the recent history of each metric.

Entries arrive through 'benchtrack ingest', the HTTP API ('benchtrack serve')
or JSON files dropped into a watched directory ('benchtrack watch').`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./benchtrack.yaml)")
	pf.BoolP("verbose", "v", false, "Enable verbose/debug logging")
	pf.String("store-type", "", "Storage backend: file, sqlite, postgres, badger, memory")
	pf.String("store-path", "", "File or directory of the store (file, sqlite, badger)")
	pf.String("store-dsn", "", "Postgres connection string")
	pf.String("repo-url", "", "Repository URL recorded with the history")
}

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"verbose":    "verbose",
	"store-type": "store.type",
	"store-path": "store.path",
	"store-dsn":  "store.dsn",
	"repo-url":   "repo_url",
}

// initConfig reads in config file and ENV variables, validates them and sets up logging.
func initConfig(cmd *cobra.Command, args []string) error {
	if err := config.Load(cfgFile); err != nil {
		return err
	}
	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}

	// Validate configuration values
	if err := config.ValidateConfig(); err != nil {
		return err
	}

	telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))
	return nil
}
