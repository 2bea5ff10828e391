package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"martianoff/sandbox/internal/config"
	"martianoff/sandbox/internal/locate"
)

var initCmd = &cobra.Command{
	Use:   "init [search-dir...]",
	Short: "Create sandbox.yaml in the current directory",
	Long: `Init writes a sandbox.yaml with the given search directories and an
empty set of proxy modules and access lists.

Examples:
  sandbox init
  sandbox init lib refs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(locate.ConfigFile); err == nil {
			return fmt.Errorf("%s already exists", locate.ConfigFile)
		}
		cfg := &config.Config{SearchDirectories: args}
		if err := cfg.Save(locate.ConfigFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", locate.ConfigFile)
		return nil
	},
}
