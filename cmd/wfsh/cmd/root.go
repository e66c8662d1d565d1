package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wfshell/wfsh/internal/engine"
	"github.com/wfshell/wfsh/pkg/logging"
)

var (
	cfgFile      string
	engineBinary string
	outputFormat string
	logLevel     string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wfsh",
	Short: "Interactive shell for an external workflow engine",
	Long: `wfsh lets you build a workflow incrementally: paste configuration and
rule definitions into an interactive session and run targets without
editing a workflow file and re-running the engine's CLI by hand.

All dependency resolution, scheduling, and execution is done by the
external engine; wfsh only captures text, writes temporary files, and
forwards your arguments.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wfsh/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&engineBinary, "engine", "", "workflow engine binary (default from config or \"snakemake\")")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".wfsh"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	viper.BindEnv("engine_binary", "WFSH_ENGINE")
	viper.BindEnv("history_db", "WFSH_HISTORY_DB")
	viper.BindEnv("temp_dir", "WFSH_TEMP_DIR")
	viper.BindEnv("listen", "WFSH_LISTEN")
	viper.BindEnv("default_cores", "WFSH_DEFAULT_CORES")

	viper.SetDefault("engine_binary", engine.DefaultBinary)

	// Missing config file is fine; defaults and env cover everything.
	viper.ReadInConfig()

	if engineBinary == "" {
		engineBinary = viper.GetString("engine_binary")
	}
}

// EngineBinary returns the configured engine executable.
func EngineBinary() string {
	if engineBinary == "" {
		return engine.DefaultBinary
	}
	return engineBinary
}

// HistoryPath returns the run-history database location.
func HistoryPath() string {
	if p := viper.GetString("history_db"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "wfsh-history.db"
	}
	dir := filepath.Join(home, ".wfsh")
	os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "history.db")
}

// TempDir returns the directory for per-run temporary files; empty means
// the system default.
func TempDir() string {
	return viper.GetString("temp_dir")
}

// DefaultCores returns the core count added to runs whose argument line
// carries none. Zero (the default) leaves the core count to the engine.
func DefaultCores() int {
	n := viper.GetInt("default_cores")
	if n < 0 {
		return 0
	}
	return n
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// NewLogger builds the logger for non-interactive commands.
func NewLogger() *logging.Logger {
	return logging.NewLogger(logging.ParseLevel(logLevel), IsJSONOutput())
}
