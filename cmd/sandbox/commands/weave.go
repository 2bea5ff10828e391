package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/sandbox/internal/log"
	"martianoff/sandbox/internal/weaver"
)

var (
	weaveOutput string
	weaveReport string
	weaveStrict bool
	weaveFetch  bool
)

var weaveCmd = &cobra.Command{
	Use:   "weave <module>",
	Short: "Rewrite a module to use proxy types",
	Long: `Weave loads a module image, substitutes every proxied type, method and
field reference with its proxy, checks foreign references against the access
lists and writes the module back.

Diagnostics are logged as warnings. They do not fail the command unless
--strict is given.

Examples:
  sandbox weave app.smod                  # Rewrite in place
  sandbox weave app.yaml -o app.smod      # Write a binary image
  sandbox weave app.smod --report r.yaml  # Save the run report`,
	Args: cobra.ExactArgs(1),
	RunE: runWeave,
}

func init() {
	weaveCmd.Flags().StringVarP(&weaveOutput, "output", "o", "", "Output path (defaults to the input)")
	weaveCmd.Flags().StringVar(&weaveReport, "report", "", "Write the run report to this file")
	weaveCmd.Flags().BoolVar(&weaveStrict, "strict", false, "Fail when any diagnostic is reported")
	weaveCmd.Flags().BoolVar(&weaveFetch, "fetch", false, "Fetch git proxy modules missing from the cache")
}

func runWeave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := weaver.New(cfg, logger)
	w.SetSink(log.Sink(logger))
	if weaveFetch {
		w.SetFetcher(newFetcher(w.Cache()))
	}

	report, err := w.WeaveFile(args[0], weaveOutput)
	if err != nil {
		return err
	}
	if weaveReport != "" {
		if err := report.Save(weaveReport); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	if weaveStrict && !report.Clean() {
		return fmt.Errorf("%d diagnostic(s) reported", len(report.Diagnostics))
	}
	return nil
}
