// Package config loads the sandbox.yaml project configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"martianoff/sandbox/internal/policy"
	"martianoff/sandbox/sandboxerr"
)

// Environment variables consulted after the file is read.
const (
	EnvSearchPath = "SANDBOX_SEARCH_PATH"
	EnvHome       = "SANDBOX_HOME"
	EnvCache      = "SANDBOX_CACHE"
)

// DefaultSumFile is the checksum file name, resolved against the config directory.
const DefaultSumFile = "sandbox.sum"

// Config is the project configuration.
type Config struct {
	// SearchDirectories are scanned, in order, for referenced modules.
	SearchDirectories []string `yaml:"search_directories,omitempty"`

	// ProxyModules lists the modules whose proxy types are registered.
	ProxyModules []ProxyModule `yaml:"proxy_modules,omitempty"`

	// AccessLists are evaluated for foreign symbols without a proxy.
	AccessLists []AccessList `yaml:"access_lists,omitempty"`

	// SumFile pins the checksums of fetched proxy modules.
	// Defaults to sandbox.sum next to the config file.
	SumFile string `yaml:"sum_file,omitempty"`

	// CacheDir holds fetched proxy repositories.
	// Defaults to Home/cache
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Home is the root directory for sandbox data.
	// Defaults to ~/.sandbox
	Home string `yaml:"-"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// ProxyModule names a proxy module, either a local image or an image inside
// a git repository.
type ProxyModule struct {
	Path string `yaml:"path"`
	Git  string `yaml:"git,omitempty"`
	Ref  string `yaml:"ref,omitempty"`
}

// IsRemote reports whether the module is fetched from git.
func (p ProxyModule) IsRemote() bool { return p.Git != "" }

func (p ProxyModule) String() string {
	if p.IsRemote() {
		return p.Git + "@" + p.Ref + ":" + p.Path
	}
	return p.Path
}

// AccessList is a named, ordered list of entries.
type AccessList struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"entries"`
}

// Entry is one access list line. Exactly one of Allow and Deny must be set.
type Entry struct {
	Allow string `yaml:"allow,omitempty"`
	Deny  string `yaml:"deny,omitempty"`
	Type  string `yaml:"type,omitempty"`
}

// Resolve converts the entry into its policy form.
func (e Entry) Resolve() (policy.MatchKind, policy.Mode, string, error) {
	kind, err := policy.ParseMatchKind(e.Type)
	if err != nil {
		return 0, 0, "", err
	}
	switch {
	case e.Allow != "" && e.Deny != "":
		return 0, 0, "", errors.New("entry sets both allow and deny")
	case e.Allow != "":
		return kind, policy.Allow, e.Allow, nil
	case e.Deny != "":
		return kind, policy.Deny, e.Deny, nil
	}
	return 0, 0, "", errors.New("entry sets neither allow nor deny")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home := defaultHome()
	return &Config{
		Home:     home,
		CacheDir: filepath.Join(home, "cache"),
		Dir:      ".",
	}
}

// defaultHome uses SANDBOX_HOME if set, otherwise ~/.sandbox
func defaultHome() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fall back to current directory
		return filepath.Join(".", ".sandbox")
	}

	return filepath.Join(homeDir, ".sandbox")
}

// Load reads the configuration file at path. A .env file in the working
// directory is loaded first; variables already set win over it.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv("."); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	cfg.applyEnvOverrides()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnvironment returns the defaults with the environment applied, for
// projects without a configuration file. Relative paths resolve against the
// working directory.
func FromEnvironment() (*Config, error) {
	if err := LoadDotEnv("."); err != nil {
		return nil, err
	}
	cfg := Default()
	dir, err := filepath.Abs(".")
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	cfg.applyEnvOverrides()
	cfg.resolvePaths()
	return cfg, nil
}

// Parse decodes a configuration document over the defaults. Unknown keys are
// rejected.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads dir/.env when it exists.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvSearchPath); v != "" {
		for _, dir := range filepath.SplitList(v) {
			if dir != "" {
				c.SearchDirectories = append(c.SearchDirectories, dir)
			}
		}
	}
	if v := os.Getenv(EnvHome); v != "" {
		c.Home = v
	}
	if v := os.Getenv(EnvCache); v != "" {
		c.CacheDir = v
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.Home, "cache")
	}
}

func (c *Config) resolvePaths() {
	for i, d := range c.SearchDirectories {
		c.SearchDirectories[i] = c.Resolve(d)
	}
	for i, p := range c.ProxyModules {
		if !p.IsRemote() {
			c.ProxyModules[i].Path = c.Resolve(p.Path)
		}
	}
	if c.SumFile == "" {
		c.SumFile = DefaultSumFile
	}
	c.SumFile = c.Resolve(c.SumFile)
	c.CacheDir = c.Resolve(c.CacheDir)
}

// Resolve returns path made absolute against the config directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// Validate rejects proxy module entries that cannot be loaded. Malformed
// access list entries are not fatal; see BuildAccessLists.
func (c *Config) Validate() error {
	var errs []string
	for i, p := range c.ProxyModules {
		switch {
		case p.Path == "":
			errs = append(errs, fmt.Sprintf("proxy_modules[%d]: path is required", i))
		case p.IsRemote() && p.Ref == "":
			errs = append(errs, fmt.Sprintf("proxy_modules[%d]: git module %s needs a ref", i, p.Git))
		case strings.Contains(p.Ref, "/"):
			errs = append(errs, fmt.Sprintf("proxy_modules[%d]: ref %s must not contain '/'", i, p.Ref))
		case !p.IsRemote() && p.Ref != "":
			errs = append(errs, fmt.Sprintf("proxy_modules[%d]: ref without git", i))
		}
	}
	for i, l := range c.AccessLists {
		if l.Name == "" {
			errs = append(errs, fmt.Sprintf("access_lists[%d]: name is required", i))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Remote returns the git proxy modules.
func (c *Config) Remote() []ProxyModule {
	var out []ProxyModule
	for _, p := range c.ProxyModules {
		if p.IsRemote() {
			out = append(out, p)
		}
	}
	return out
}

// BuildAccessLists converts the configured lists. Invalid entries are
// reported to sink as configuration errors and skipped; invalid patterns are
// reported by the access list itself.
func (c *Config) BuildAccessLists(sink sandboxerr.Sink) []*policy.AccessList {
	var lists []*policy.AccessList
	for _, l := range c.AccessLists {
		list := policy.NewAccessList(l.Name, sink)
		for i, e := range l.Entries {
			kind, mode, pattern, err := e.Resolve()
			if err != nil {
				sink.Report(sandboxerr.NewConfigError(fmt.Sprintf("access list %s entry %d: %v", l.Name, i, err)))
				continue
			}
			list.Add(kind, mode, pattern)
		}
		lists = append(lists, list)
	}
	return lists
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
