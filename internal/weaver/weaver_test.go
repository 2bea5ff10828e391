package weaver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"martianoff/sandbox/internal/config"
	"martianoff/sandbox/internal/fetch"
	"martianoff/sandbox/internal/metadata"
	"martianoff/sandbox/internal/sum"
	"martianoff/sandbox/sandboxerr"
)

func TestWeaveFile(t *testing.T) {
	cfg := testConfig(t)
	in := copyApp(t)
	out := filepath.Join(filepath.Dir(in), "app.smod")

	var seen sandboxerr.List
	w := New(cfg, nil)
	w.SetSink(&seen)
	report, err := w.WeaveFile(in, out)
	require.NoError(t, err)

	assert.Equal(t, "app", report.Module)
	assert.Len(t, report.RunID, 36)
	assert.Equal(t, []string{"proxies"}, report.ProxyModules)
	assert.Equal(t, 1, report.Proxies)
	assert.Equal(t, 2, report.Stats.Types)
	assert.Equal(t, 2, report.Stats.Methods)
	assert.Equal(t, 9, report.Stats.Instructions)
	assert.Equal(t, 4, report.Stats.Substitutions)
	assert.Empty(t, report.Warnings)

	require.Len(t, report.Diagnostics, 1)
	d := report.Diagnostics[0]
	assert.Equal(t, sandboxerr.TypePolicy, d.Category)
	assert.Equal(t, "[PolicyViolation] referenced blacklisted method 'System.Void Forbidden.X::Foo()'", d.Message)
	assert.Equal(t, "System.Void App.Program::Main()", d.Context)
	assert.False(t, report.Clean())
	assert.Equal(t, 1, report.Count(sandboxerr.TypePolicy))
	assert.Equal(t, 1, seen.Len(), "diagnostics are forwarded as they happen")

	woven, err := metadata.LoadFile(out)
	require.NoError(t, err)
	program := woven.FindType("App", "Program", 0)
	require.NotNil(t, program)
	assert.Equal(t, "Proxies.P", program.Fields[0].FieldType.FullName())
	call := program.Methods[0].Body.Instructions[3].Operand.(*metadata.MethodRef)
	assert.Equal(t, "System.String Proxies.P::M(System.Int32)", call.FullName())
	assert.Contains(t, woven.References, "proxies")

	// the input is left alone when an output path is given
	original, err := metadata.LoadFile(in)
	require.NoError(t, err)
	assert.Equal(t, "App.T", original.FindType("App", "Program", 0).Fields[0].FieldType.FullName())
}

func TestWeaveFile_InPlaceIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	in := copyApp(t)

	first, err := New(cfg, nil).WeaveFile(in, "")
	require.NoError(t, err)
	assert.Equal(t, 4, first.Stats.Substitutions)

	second, err := New(cfg, nil).WeaveFile(in, "")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stats.Substitutions)
	assert.Equal(t, 1, second.Count(sandboxerr.TypePolicy))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestWeave_MissingSearchDirectoryIsAWarning(t *testing.T) {
	cfg := testConfig(t)
	missing := filepath.Join(t.TempDir(), "absent")
	cfg.SearchDirectories = append(cfg.SearchDirectories, missing)

	report, err := New(cfg, nil).WeaveFile(copyApp(t), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"search directory does not exist: " + missing}, report.Warnings)
}

func TestWeave_UnresolvableReferencesAreDiagnostics(t *testing.T) {
	cfg := testConfig(t)
	cfg.SearchDirectories = nil

	report, err := New(cfg, nil).WeaveFile(copyApp(t), "")
	require.NoError(t, err)
	assert.Positive(t, report.Count(sandboxerr.TypeUnresolved))
	assert.Equal(t, 4, report.Stats.Substitutions, "proxies still apply")
}

func TestWeave_MissingProxyModuleIsFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProxyModules = append(cfg.ProxyModules, config.ProxyModule{Path: filepath.Join(t.TempDir(), "none.yaml")})

	_, err := New(cfg, nil).WeaveFile(copyApp(t), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none.yaml")
}

func TestWeave_InvalidAccessEntriesAreReported(t *testing.T) {
	cfg := testConfig(t)
	cfg.AccessLists = append(cfg.AccessLists, config.AccessList{
		Name:    "broken",
		Entries: []config.Entry{{Deny: "x", Type: "glob"}, {Allow: "("}},
	})

	report, err := New(cfg, nil).WeaveFile(copyApp(t), "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(sandboxerr.TypeConfig))
	assert.Equal(t, 1, report.Count(sandboxerr.TypePattern))
	assert.Equal(t, 1, report.Count(sandboxerr.TypePolicy))
}

const remoteRepo = "example.com/acme/proxies"

func remoteConfig(t *testing.T) *config.Config {
	cfg := testConfig(t)
	cfg.ProxyModules = []config.ProxyModule{{Git: remoteRepo, Ref: "v1", Path: "proxies.yaml"}}
	return cfg
}

func TestWeave_RemoteProxyChecksums(t *testing.T) {
	cfg := remoteConfig(t)
	cache := fetch.NewCache(cfg.CacheDir)
	require.NoError(t, cache.Store(remoteRepo, "v1", filepath.Join(testdataDir(), "proxies")))

	report, err := New(cfg, nil).WeaveFile(copyApp(t), "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Proxies)

	sums, err := sum.ParseFile(cfg.SumFile)
	require.NoError(t, err)
	entry := sums.Get(remoteRepo, "v1", "/proxies.yaml")
	require.NotNil(t, entry, "the checksum is recorded on first use")

	image := cache.ImagePath(remoteRepo, "v1", "proxies.yaml")
	data, err := os.ReadFile(image)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(image, append(data, '\n'), 0644))

	_, err = New(cfg, nil).WeaveFile(copyApp(t), "")
	var mismatch *sum.HashMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, entry.Hash, mismatch.Expected)
}

func TestWeave_RemoteProxyNotFetched(t *testing.T) {
	cfg := remoteConfig(t)

	_, err := New(cfg, nil).WeaveFile(copyApp(t), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'sandbox fetch'")
}

func TestReport_Write(t *testing.T) {
	report := &Report{
		RunID:  "id",
		Module: "app",
		Diagnostics: []Diagnostic{
			{Category: sandboxerr.TypePolicy, Message: "denied", Context: "App.Program"},
			{Category: sandboxerr.TypeConfig, Message: "bad entry"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *report, decoded)

	assert.Equal(t, "denied in 'App.Program'", report.Diagnostics[0].String())
	assert.Equal(t, "bad entry", report.Diagnostics[1].String())
	assert.Equal(t, "app: 0 types, 0 methods, 0 instructions, 0 substitutions, 2 diagnostics", report.Summary())

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, report.Save(path))
	assert.FileExists(t, path)
}
