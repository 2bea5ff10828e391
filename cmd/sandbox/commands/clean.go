package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/sandbox/internal/fetch"
)

var cleanUnused bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove fetched proxy modules from the cache",
	Long: `Clean removes the proxy module cache.

Options:
  --unused  Remove only refs not named in sandbox.yaml

Examples:
  sandbox clean            # Remove the whole cache
  sandbox clean --unused   # Keep refs still in use`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanUnused, "unused", false, "Remove only refs not in the configuration")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cache := fetch.NewCache(cfg.CacheDir)
	out := cmd.OutOrStdout()

	if !cleanUnused {
		if err := cache.Clean(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %s\n", cache.Dir())
		return nil
	}

	used := map[string]bool{}
	for _, p := range cfg.Remote() {
		used[p.Git+"@"+p.Ref] = true
	}
	entries, err := cache.List()
	if err != nil {
		return err
	}
	count := 0
	for _, e := range entries {
		if used[e.Repo+"@"+e.Ref] {
			continue
		}
		if err := cache.Remove(e.Repo, e.Ref); err != nil {
			return err
		}
		logger.Debug("removed", "repo", e.Repo, "ref", e.Ref)
		count++
	}
	fmt.Fprintf(out, "Removed %d unused ref(s).\n", count)
	return nil
}
