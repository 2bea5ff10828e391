package weaver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bazelbuild/rules_go/go/tools/bazel"
	"github.com/stretchr/testify/require"

	"martianoff/sandbox/internal/config"
)

// testdataDir returns the testdata directory. In Bazel tests it is found via
// runfiles; otherwise it is relative to the package directory.
func testdataDir() string {
	if path, err := bazel.Runfile("internal/weaver/testdata/app.yaml"); err == nil {
		return filepath.Dir(path)
	}
	return "testdata"
}

// copyApp copies the application image into a temporary directory so tests
// can rewrite it.
func copyApp(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(testdataDir(), "app.yaml"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// testConfig loads testdata/sandbox.yaml with the sum file and cache moved
// into temporary directories.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(config.EnvSearchPath, "")
	t.Setenv(config.EnvCache, "")
	cfg, err := config.Load(filepath.Join(testdataDir(), "sandbox.yaml"))
	require.NoError(t, err)
	cfg.SumFile = filepath.Join(t.TempDir(), config.DefaultSumFile)
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	return cfg
}
