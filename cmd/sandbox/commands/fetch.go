package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/sandbox/internal/config"
	"martianoff/sandbox/internal/fetch"
	"martianoff/sandbox/internal/sum"
)

var fetchForce bool

// newFetcher creates the fetcher used by fetch, refs and weave --fetch.
var newFetcher = fetch.NewGitFetcher

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch git proxy modules into the cache",
	Long: `Fetch clones every git proxy module named in sandbox.yaml at its ref,
stores its module images in the cache and records their checksums in
sandbox.sum.

Existing checksums are checked, not replaced: a fetched module that differs
from sandbox.sum is an error.

Examples:
  sandbox fetch           # Fetch modules missing from the cache
  sandbox fetch --force   # Fetch everything again`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "Fetch again even when cached")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sums, err := sum.ParseFile(cfg.SumFile)
	if err != nil {
		return err
	}

	cache := fetch.NewCache(cfg.CacheDir)
	fetcher := newFetcher(cache)
	out := cmd.OutOrStdout()

	fetched := map[string]bool{}
	for _, p := range cfg.Remote() {
		key := p.Git + "@" + p.Ref
		if !fetched[key] {
			fetched[key] = true
			if fetchForce {
				if err := cache.Remove(p.Git, p.Ref); err != nil {
					return err
				}
			}
			result, err := fetcher.Fetch(p.Git, p.Ref)
			if err != nil {
				return err
			}
			if err := record(sums, p.Git, p.Ref, "", result.Hash); err != nil {
				return err
			}
			if result.Cached {
				fmt.Fprintf(out, "cached: %s\n", key)
			} else {
				fmt.Fprintf(out, "fetched: %s\n", key)
			}
		}

		if err := recordImage(cache, sums, p); err != nil {
			return err
		}
	}

	if len(fetched) == 0 {
		fmt.Fprintln(out, "No git proxy modules configured.")
		return nil
	}
	if err := sum.WriteFile(sums, cfg.SumFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.SumFile, err)
	}
	logger.Info("updated checksums", "file", cfg.SumFile)
	return nil
}

func recordImage(cache *fetch.Cache, sums *sum.File, p config.ProxyModule) error {
	hash, err := sum.HashFile(cache.ImagePath(p.Git, p.Ref, p.Path))
	if err != nil {
		return fmt.Errorf("proxy module %s: %w", p, err)
	}
	return record(sums, p.Git, p.Ref, sum.ImageSuffix(p.Path), hash)
}

// record adds a checksum, or checks it against the one already recorded.
func record(sums *sum.File, repo, ref, suffix, hash string) error {
	found, err := sums.Check(repo, ref, suffix, hash)
	if err != nil {
		return err
	}
	if !found {
		sums.Add(repo, ref, suffix, hash)
	}
	return nil
}
