package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/sandbox/internal/fetch"
)

var refsLatest bool

var refsCmd = &cobra.Command{
	Use:   "refs <repo>",
	Short: "List the tags of a proxy repository",
	Long: `Refs lists the tags of a git repository, to pick a ref for a proxy
module entry.

Version tags are listed first, lowest to highest.

Examples:
  sandbox refs github.com/acme/sandbox-proxies
  sandbox refs github.com/acme/sandbox-proxies --latest`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tags, err := newFetcher(fetch.NewCache(cfg.CacheDir)).ListRefs(args[0])
		if err != nil {
			return err
		}
		if refsLatest {
			latest, ok := fetch.Latest(tags)
			if !ok {
				return fmt.Errorf("no release tags in %s", args[0])
			}
			tags = []string{latest}
		}
		for _, tag := range tags {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}

func init() {
	refsCmd.Flags().BoolVar(&refsLatest, "latest", false, "Print only the highest release tag")
}
