package fetch

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GitFetcher fetches proxy repositories with go-git.
type GitFetcher struct {
	cache *Cache

	// URL maps a repository name to its clone URL. Defaults to RepoURL.
	URL func(repo string) string

	// Shallow clones only the tip of each ref. Local repositories used in
	// tests do not support it.
	Shallow bool
}

// NewGitFetcher creates a GitFetcher storing into cache.
func NewGitFetcher(cache *Cache) *GitFetcher {
	return &GitFetcher{cache: cache, URL: RepoURL, Shallow: true}
}

// Result describes a fetched repository ref.
type Result struct {
	Repo   string
	Ref    string
	Path   string // cache directory
	Hash   string // hash over all cached images
	Cached bool   // true when nothing was downloaded
}

// Fetch makes repo at ref available in the cache, cloning it when needed.
func (f *GitFetcher) Fetch(repo, ref string) (*Result, error) {
	result := &Result{Repo: repo, Ref: ref, Path: f.cache.RefPath(repo, ref)}

	if f.cache.IsCached(repo, ref) {
		hash, err := f.cache.Hash(repo, ref)
		if err != nil {
			return nil, err
		}
		result.Hash, result.Cached = hash, true
		return result, nil
	}

	if err := os.MkdirAll(f.cache.Dir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	url := f.URL(repo)

	tempDir, err := os.MkdirTemp("", "sandbox-fetch-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	opts := &git.CloneOptions{
		URL:  url,
		Tags: git.AllTags,
	}
	if f.Shallow {
		opts.Depth = 1
	}
	r, err := git.PlainClone(tempDir, false, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository %s: %w", url, err)
	}

	if err := checkoutRef(r, ref); err != nil {
		return nil, fmt.Errorf("failed to checkout %s: %w", ref, err)
	}

	if err := f.cache.Store(repo, ref, tempDir); err != nil {
		return nil, fmt.Errorf("failed to store in cache: %w", err)
	}

	hash, err := f.cache.Hash(repo, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}
	result.Hash = hash
	return result, nil
}

// ListRefs lists the tags of the remote repository, version tags first in
// ascending order.
func (f *GitFetcher) ListRefs(repo string) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{f.URL(repo)},
	})

	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote refs: %w", err)
	}

	var tags []string
	for _, ref := range refs {
		if ref.Name().IsTag() {
			tags = append(tags, ref.Name().Short())
		}
	}
	SortRefs(tags)
	return tags, nil
}

// checkoutRef checks out ref as a tag, then a branch, then a revision.
func checkoutRef(r *git.Repository, ref string) error {
	worktree, err := r.Worktree()
	if err != nil {
		return err
	}

	candidates := []plumbing.Revision{
		plumbing.Revision(plumbing.NewTagReferenceName(ref)),
		plumbing.Revision(plumbing.NewRemoteReferenceName("origin", ref)),
		plumbing.Revision(plumbing.NewBranchReferenceName(ref)),
		plumbing.Revision(ref),
	}
	for _, rev := range candidates {
		hash, err := r.ResolveRevision(rev)
		if err == nil {
			return worktree.Checkout(&git.CheckoutOptions{Hash: *hash})
		}
	}

	return fmt.Errorf("ref not found: %s", ref)
}

// RepoURL converts a repository name to a clone URL. Names that already carry
// a scheme, and absolute paths, are used as given.
func RepoURL(repo string) string {
	if strings.Contains(repo, "://") || strings.HasPrefix(repo, "/") || strings.HasPrefix(repo, "git@") {
		return repo
	}

	parts := strings.Split(repo, "/")
	if len(parts) < 2 {
		return "https://" + repo + ".git"
	}

	host := parts[0]
	switch host {
	case "github.com", "gitlab.com", "bitbucket.org":
		// the repository is the first two path components
		if len(parts) >= 3 {
			return fmt.Sprintf("https://%s/%s/%s.git", host, parts[1], parts[2])
		}
		return "https://" + repo + ".git"
	default:
		return "https://" + repo + ".git"
	}
}
