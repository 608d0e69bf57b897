package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/common/logger"
	"github.com/obentoo/gun/internal/common/output"
	"github.com/obentoo/gun/internal/cycle"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool
	logFile bool
)

var rootCmd = &cobra.Command{
	Use:   "gun",
	Short: "Gentoo updates notifier",
	Long: `gun syncs the Portage tree, asks emerge which packages would be updated
and sends the colored report by email and/or XMPP.

Without a subcommand gun runs one complete cycle, which is what a cron job
or systemd timer should call.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Configure logging based on flags
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
	},
	Run: runCycle,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file (default: search $GUN_CONFIG, /etc/gun/gun.toml, /etc/gun.toml, ~/.config/gun/gun.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log", false, "Write a log file even when general.log_file is unset (/var/log/gun/gun.log as root)")
}

// fatal logs a run-aborting condition and exits with status 1
func fatal(format string, args ...interface{}) {
	logger.Critical(format, args...)
	logger.Close()
	os.Exit(1)
}

// loadConfig loads the configuration and starts file logging when enabled
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fatal("loading config: %v", err)
	}
	if cfg.General.LogFile != "" || logFile {
		// An empty path selects the default log location
		if err := logger.EnableFileLogging(cfg.General.LogFile); err != nil {
			logger.Warn("file logging disabled: %v", err)
		}
	}
	return cfg
}

func runCycle(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	defer logger.Close()

	c, err := cycle.New(cfg)
	if err != nil {
		fatal("%v", err)
	}

	res, err := c.Run(cmd.Context())
	if err != nil {
		fatal("%v", err)
	}

	if len(res.Sent) > 0 {
		logger.Info("Report delivered via %s", strings.Join(res.Sent, ", "))
	}
	for name, err := range res.Failed {
		logger.Debug("%s: %v", name, err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
