// Package commands provides the CLI commands for the sandbox tool.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"martianoff/sandbox/internal/config"
	"martianoff/sandbox/internal/locate"
	"martianoff/sandbox/internal/log"
)

var (
	configPath string
	logLevel   string
	logJSON    bool

	logger log.Logger = log.Nop
)

var rootCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Redirect module references to proxy types",
	Long: `sandbox rewrites compiled modules so that every reference to a proxied
type, method or field points at its proxy instead, and reports references
denied by the configured access lists.

The configuration is read from sandbox.yaml, found by walking up from the
current directory unless --config is given.

Usage:
  sandbox weave app.smod           Rewrite a module in place
  sandbox fetch                    Fetch git proxy modules
  sandbox verify                   Check cached proxy modules against sandbox.sum
  sandbox init                     Create sandbox.yaml
  sandbox version                  Print version`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = log.New(log.Config{Level: level, JSONOutput: logJSON, Output: cmd.ErrOrStderr()})
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(weaveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to sandbox.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "json", false, "Write log entries as JSON")
}

// loadConfig reads the configuration named by --config, or the nearest
// sandbox.yaml. Without either the defaults apply.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path = locate.FindConfig(cwd)
	}
	if path == "" {
		logger.Debug("no config file found, using defaults")
		return config.FromEnvironment()
	}
	logger.Debug("loading config", "path", path)
	return config.Load(path)
}
