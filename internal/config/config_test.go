package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/sandbox/internal/policy"
	"martianoff/sandbox/sandboxerr"
)

const sample = `search_directories: [lib, /opt/refs]
proxy_modules:
  - path: proxies/io.yaml
  - git: github.com/acme/sandbox-proxies
    ref: v1.2.0
    path: out/proxies.smod
access_lists:
  - name: io
    entries:
      - deny: System.IO
        type: namespace
      - allow: '^System\.Console'
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Setenv(EnvSearchPath, "")
	t.Setenv(EnvHome, "")
	t.Setenv(EnvCache, "")
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, sample)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "lib"), "/opt/refs"}, cfg.SearchDirectories)
	require.Len(t, cfg.ProxyModules, 2)
	assert.Equal(t, filepath.Join(dir, "proxies/io.yaml"), cfg.ProxyModules[0].Path)
	assert.False(t, cfg.ProxyModules[0].IsRemote())
	assert.Equal(t, "out/proxies.smod", cfg.ProxyModules[1].Path, "paths inside repositories stay relative")
	assert.Equal(t, "github.com/acme/sandbox-proxies@v1.2.0:out/proxies.smod", cfg.ProxyModules[1].String())
	assert.Equal(t, []ProxyModule{cfg.ProxyModules[1]}, cfg.Remote())
	assert.Equal(t, filepath.Join(dir, DefaultSumFile), cfg.SumFile)

	require.Len(t, cfg.AccessLists, 1)
	assert.Equal(t, "io", cfg.AccessLists[0].Name)
	assert.Equal(t, Entry{Deny: "System.IO", Type: "namespace"}, cfg.AccessLists[0].Entries[0])
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvSearchPath, strings.Join([]string{"/x", "/y"}, string(os.PathListSeparator)))

	cfg, err := Load(writeConfig(t, "search_directories: [/a]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/x", "/y"}, cfg.SearchDirectories)
	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, filepath.Join(home, "cache"), cfg.CacheDir)

	cache := t.TempDir()
	t.Setenv(EnvCache, cache)
	cfg, err = Load(writeConfig(t, "cache_dir: elsewhere\n"))
	require.NoError(t, err)
	assert.Equal(t, cache, cfg.CacheDir)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvCache)
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, ".env"), []byte(EnvCache+"=/from/dotenv\n"), 0644))
	chdirForTest(t, work)
	t.Cleanup(func() { os.Unsetenv(EnvCache) })

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.CacheDir)
}

func TestFromEnvironment(t *testing.T) {
	clearEnv(t)
	work := t.TempDir()
	chdirForTest(t, work)
	t.Setenv(EnvSearchPath, "refs")

	cfg, err := FromEnvironment()
	require.NoError(t, err)
	abs, err := filepath.Abs(".")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(abs, "refs")}, cfg.SearchDirectories)
	assert.Equal(t, filepath.Join(abs, DefaultSumFile), cfg.SumFile)
	assert.Empty(t, cfg.ProxyModules)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "proxies: []\n", "field proxies not found"},
		{"bad yaml", "search_directories: [\n", "failed to parse"},
		{"missing path", "proxy_modules:\n  - git: example.com/p\n    ref: v1\n", "path is required"},
		{"git without ref", "proxy_modules:\n  - git: example.com/p\n    path: a.yaml\n", "needs a ref"},
		{"slash in ref", "proxy_modules:\n  - git: example.com/p\n    ref: feature/x\n    path: a.yaml\n", "must not contain"},
		{"ref without git", "proxy_modules:\n  - path: a.yaml\n    ref: v1\n", "ref without git"},
		{"unnamed list", "access_lists:\n  - entries: []\n", "name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEntryResolve(t *testing.T) {
	kind, mode, pattern, err := Entry{Deny: "Foo", Type: "NamespaceStart"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, policy.MatchNamespacePrefix, kind)
	assert.Equal(t, policy.Deny, mode)
	assert.Equal(t, "Foo", pattern)

	kind, mode, _, err = Entry{Allow: "x"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, policy.MatchRegex, kind)
	assert.Equal(t, policy.Allow, mode)

	_, _, _, err = Entry{Allow: "x", Deny: "y"}.Resolve()
	assert.Error(t, err)
	_, _, _, err = Entry{}.Resolve()
	assert.Error(t, err)
	_, _, _, err = Entry{Deny: "x", Type: "glob"}.Resolve()
	assert.Error(t, err)
}

func TestBuildAccessLists(t *testing.T) {
	cfg := &Config{AccessLists: []AccessList{{
		Name: "io",
		Entries: []Entry{
			{Deny: "System.IO", Type: "namespace"},
			{Deny: "x", Type: "glob"},
			{Allow: "("},
			{},
		},
	}}}

	var errs sandboxerr.List
	lists := cfg.BuildAccessLists(&errs)

	require.Len(t, lists, 1)
	assert.Equal(t, 1, lists[0].Len())
	assert.True(t, lists[0].IsBlacklisted("System.IO.File", "System.IO"))
	assert.Equal(t, 2, errs.Count(sandboxerr.TypeConfig))
	assert.Equal(t, 1, errs.Count(sandboxerr.TypePattern))
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := &Config{
		SearchDirectories: []string{"lib"},
		ProxyModules:      []ProxyModule{{Path: "proxies.yaml"}},
		AccessLists:       []AccessList{{Name: "io", Entries: []Entry{{Deny: "System.IO", Type: "namespace"}}}},
	}
	path := filepath.Join(t.TempDir(), "nested", "sandbox.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "lib")}, loaded.SearchDirectories)
	assert.Equal(t, cfg.AccessLists, loaded.AccessLists)
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains:
// it changes the working directory and restores it when the test ends.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(oldwd, dir)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})
}
