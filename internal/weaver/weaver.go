// Package weaver runs a complete weaving pass: it builds the module universe
// from the configuration, loads proxy modules and access lists, and rewrites
// the target module.
package weaver

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"martianoff/sandbox/internal/config"
	"martianoff/sandbox/internal/fetch"
	"martianoff/sandbox/internal/locate"
	"martianoff/sandbox/internal/log"
	"martianoff/sandbox/internal/metadata"
	"martianoff/sandbox/internal/sandbox"
	"martianoff/sandbox/internal/sum"
	"martianoff/sandbox/sandboxerr"
)

// Weaver rewrites target modules according to one configuration.
type Weaver struct {
	cfg     *config.Config
	log     log.Logger
	cache   *fetch.Cache
	fetcher *fetch.GitFetcher
	sink    sandboxerr.Sink
}

// New creates a Weaver. A nil logger discards log output.
func New(cfg *config.Config, logger log.Logger) *Weaver {
	if logger == nil {
		logger = log.Nop
	}
	return &Weaver{
		cfg:   cfg,
		log:   logger,
		cache: fetch.NewCache(cfg.CacheDir),
		sink:  sandboxerr.Discard,
	}
}

// SetFetcher lets the weaver fetch git proxy modules missing from the cache.
// Without a fetcher an uncached module is an error.
func (w *Weaver) SetFetcher(f *fetch.GitFetcher) {
	w.fetcher = f
}

// SetSink forwards every diagnostic to s as it is reported, in addition to
// collecting it in the report.
func (w *Weaver) SetSink(s sandboxerr.Sink) {
	w.sink = s
}

// Cache returns the proxy cache.
func (w *Weaver) Cache() *fetch.Cache {
	return w.cache
}

// WeaveFile loads the module image at in, rewrites it and saves it to out.
// An empty out overwrites in. The output format follows out's extension.
func (w *Weaver) WeaveFile(in, out string) (*Report, error) {
	target, err := metadata.LoadFile(in)
	if err != nil {
		return nil, err
	}
	report, err := w.Weave(target)
	if err != nil {
		return nil, err
	}
	if out == "" {
		out = in
	}
	if err := metadata.SaveFile(out, target); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out, err)
	}
	w.log.Debug("wrote module", "path", out)
	return report, nil
}

// Weave rewrites target in place. The returned error is set only for fatal
// problems found before traversal: an unreadable proxy module or a checksum
// mismatch. Everything else ends up in the report.
func (w *Weaver) Weave(target *metadata.Module) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Module: target.Name}

	resolver := locate.NewResolver(w.cfg.SearchDirectories)
	for _, dir := range resolver.Missing() {
		w.log.Warn("search directory does not exist", "dir", dir)
		report.Warnings = append(report.Warnings, "search directory does not exist: "+dir)
	}

	universe := metadata.NewUniverse(resolver)
	universe.Add(target)

	var diagnostics sandboxerr.List
	sink := sandboxerr.Tee(&diagnostics, w.sink)
	worker := sandbox.NewWorker(universe, sink)

	modules, err := w.loadProxyModules()
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		worker.AddProxyModule(m)
		report.ProxyModules = append(report.ProxyModules, m.Name)
	}
	report.Proxies = worker.TypeMap().Proxies().Len()
	w.log.Debug("registered proxies", "count", report.Proxies)

	for _, l := range w.cfg.BuildAccessLists(sink) {
		worker.AddAccessList(l)
	}

	report.Stats = worker.Process(target)
	for _, err := range diagnostics.Errors {
		report.Diagnostics = append(report.Diagnostics, newDiagnostic(err))
	}
	w.log.Info("woven", "module", target.Name, "substitutions", report.Stats.Substitutions, "diagnostics", len(report.Diagnostics))
	return report, nil
}

// loadProxyModules reads every configured proxy module. Images fetched from
// git are checked against the sum file; new checksums are recorded.
func (w *Weaver) loadProxyModules() ([]*metadata.Module, error) {
	sums, err := sum.ParseFile(w.cfg.SumFile)
	if err != nil {
		return nil, err
	}
	dirty := false

	var modules []*metadata.Module
	for _, p := range w.cfg.ProxyModules {
		path := p.Path
		if p.IsRemote() {
			path, err = w.remoteImage(p)
			if err != nil {
				return nil, err
			}
			hash, err := sum.HashFile(path)
			if err != nil {
				return nil, fmt.Errorf("proxy module %s: %w", p, err)
			}
			found, err := sums.Check(p.Git, p.Ref, sum.ImageSuffix(p.Path), hash)
			if err != nil {
				return nil, fmt.Errorf("proxy module %s: %w", p, err)
			}
			if !found {
				sums.Add(p.Git, p.Ref, sum.ImageSuffix(p.Path), hash)
				dirty = true
			}
		}

		m, err := metadata.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("proxy module %s: %w", p, err)
		}
		w.log.Debug("loaded proxy module", "module", m.Name, "path", path)
		modules = append(modules, m)
	}

	if dirty {
		if err := sum.WriteFile(sums, w.cfg.SumFile); err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", w.cfg.SumFile, err)
		}
		w.log.Info("recorded checksums", "file", w.cfg.SumFile)
	}
	return modules, nil
}

func (w *Weaver) remoteImage(p config.ProxyModule) (string, error) {
	if !w.cache.IsCached(p.Git, p.Ref) {
		if w.fetcher == nil {
			return "", fmt.Errorf("proxy module %s is not fetched; run 'sandbox fetch'", p)
		}
		w.log.Info("fetching", "repo", p.Git, "ref", p.Ref)
		if _, err := w.fetcher.Fetch(p.Git, p.Ref); err != nil {
			return "", fmt.Errorf("proxy module %s: %w", p, err)
		}
	}
	path := w.cache.ImagePath(p.Git, p.Ref, p.Path)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("proxy module %s: %w", p, err)
	}
	return path, nil
}
