package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"martianoff/sandbox/internal/fetch"
	"martianoff/sandbox/internal/sum"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify cached proxy modules match sandbox.sum",
	Long: `Verify checks each cached git proxy module against the hashes recorded
in sandbox.sum, both for the whole cached ref and for each configured image.

Examples:
  sandbox verify`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sums, err := sum.ParseFile(cfg.SumFile)
	if err != nil {
		return err
	}
	cache := fetch.NewCache(cfg.CacheDir)
	out := cmd.OutOrStdout()

	verified, failed, missing := 0, 0, 0
	seen := map[string]bool{}
	for _, p := range cfg.Remote() {
		key := p.Git + "@" + p.Ref
		if seen[key] {
			continue
		}
		seen[key] = true

		entry := sums.Get(p.Git, p.Ref, "")
		if entry == nil {
			fmt.Fprintf(out, "MISSING: %s (not in %s)\n", key, filepath.Base(cfg.SumFile))
			missing++
			continue
		}
		if !cache.IsCached(p.Git, p.Ref) {
			fmt.Fprintf(out, "NOT CACHED: %s\n", key)
			missing++
			continue
		}

		err := cache.Verify(p.Git, p.Ref, entry.Hash)
		var mismatch *sum.HashMismatchError
		switch {
		case errors.As(err, &mismatch):
			fmt.Fprintf(out, "FAILED: %s\n", key)
			fmt.Fprintf(out, "  Expected: %s\n", mismatch.Expected)
			fmt.Fprintf(out, "  Actual:   %s\n", mismatch.Actual)
			failed++
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "OK: %s\n", key)
			verified++
		}

		for _, image := range sums.RefEntries(p.Git, p.Ref) {
			if image.Suffix == "" {
				continue
			}
			name := image.Suffix[1:]
			hash, err := sum.HashFile(cache.ImagePath(p.Git, p.Ref, name))
			switch {
			case err != nil:
				fmt.Fprintf(out, "  %s: MISSING\n", name)
				failed++
			case hash != image.Hash:
				fmt.Fprintf(out, "  %s: HASH MISMATCH\n", name)
				failed++
			default:
				fmt.Fprintf(out, "  %s: OK\n", name)
			}
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Verified: %d, Failed: %d, Missing: %d\n", verified, failed, missing)

	if failed > 0 {
		return errors.New("verification failed")
	}
	if missing > 0 {
		fmt.Fprintln(out, "\nSome modules are not cached. Run 'sandbox fetch' to fetch them.")
	}
	return nil
}
