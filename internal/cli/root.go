package cli

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/JamaalDavis/holochain-rust/internal/config"
	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/netconn"
)

var (
	cfg         *config.Config
	logger      *logging.Logger
	registry    *prometheus.Registry
	metrics     *netconn.Metrics
	verboseFlag bool
	jsonFlag    bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:          "holonet",
	Short:        "holonet peer connection diagnostics",
	Long:         `holonet - drive peer connections end to end over memory, websocket or Azure Relay transports`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configFlag != "" {
			cfg, err = config.LoadFile(configFlag)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := logging.ParseLevel(cfg.LogLevel)
		if verboseFlag {
			level = logging.DebugLevel
		}
		format := logging.ParseFormat(cfg.LogFormat)
		if jsonFlag {
			format = logging.FormatJSON
		}

		if cfg.LogFile != "" {
			logger = logging.NewWithFile(level, format, logging.FileOptions{Path: cfg.LogFile})
		} else {
			logger = logging.NewWithFormatOutput(level, format, cmd.ErrOrStderr())
		}
		logger.Debug("Logger initialized",
			logging.String("level", level.String()),
			logging.String("format", format.String()),
			logging.String("transport", cfg.Transport.String()),
		)

		registry = prometheus.NewRegistry()
		metrics, err = netconn.NewMetrics(registry)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Disable default completion and help commands
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose logging (debug level)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to a TOML config file")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetLogger returns the global logger instance
func GetLogger() *logging.Logger {
	return logger
}

// GetConfig returns the global config instance
func GetConfig() *config.Config {
	return cfg
}
