package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/obentoo/gun/internal/common/config"
	"github.com/obentoo/gun/internal/common/logger"
	"github.com/obentoo/gun/internal/common/output"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or check the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Long: `Write a default configuration file. The format follows the extension:
.toml (default) or .yaml/.yml.

Without a path the file goes to /etc/gun/gun.toml when run as root and to
~/.config/gun/gun.toml otherwise. The file is created with mode 0600 because
it holds the mail and XMPP passwords.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	Long:  `Load the configuration, report unknown settings and list every missing or invalid field.`,
	Args:  cobra.NoArgs,
	Run:   runConfigCheck,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

// defaultInitPath returns where config init writes without an argument
func defaultInitPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if os.Geteuid() == 0 {
		return filepath.Join("/etc", "gun", "gun.toml")
	}
	paths := config.ConfigPaths()
	return paths[len(paths)-1]
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := defaultInitPath()
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		output.PrintError("%s already exists (use --force to overwrite)", path)
		os.Exit(1)
	}

	if err := config.Default().SaveTo(path); err != nil {
		output.PrintError("writing %s: %v", path, err)
		os.Exit(1)
	}
	output.PrintSuccess("Configuration written to %s", path)
	output.PrintInfo("Set the [email] relay and recipients, then run: gun config check")
}

func runConfigCheck(cmd *cobra.Command, args []string) {
	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.FindConfigPath(); err != nil {
			output.PrintError("%v", err)
			os.Exit(1)
		}
	}

	cfg, unknown, err := config.LoadFrom(path)
	if err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
	for _, key := range unknown {
		output.PrintWarning("%s: unknown setting %q", path, key)
	}

	if err := cfg.Validate(); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				output.PrintError("%s", p)
			}
		} else {
			output.PrintError("%v", err)
		}
		os.Exit(1)
	}

	logger.Debug("enabled channels: %v", cfg.Channels())
	output.PrintSuccess("%s is valid", path)
}
