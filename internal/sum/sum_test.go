package sum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repo = "github.com/acme/proxies"

func TestParse_Empty(t *testing.T) {
	f, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, f.Entries)
}

func TestParse_Entries(t *testing.T) {
	content := `# pinned proxies
github.com/acme/proxies v1.2.0 h1:abc123==
github.com/acme/proxies v1.2.0/out/io.smod h1:def456==
`
	f, err := Parse(content)
	require.NoError(t, err)
	require.Len(t, f.Entries, 2)

	assert.Equal(t, Entry{Repo: repo, Ref: "v1.2.0", Hash: "h1:abc123=="}, f.Entries[0])
	assert.Equal(t, Entry{Repo: repo, Ref: "v1.2.0", Suffix: "/out/io.smod", Hash: "h1:def456=="}, f.Entries[1])
	assert.Len(t, f.RefEntries(repo, "v1.2.0"), 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{repo + " v1 invalidhash", "sandbox.sum:1: invalid hash format"},
		{"\n" + repo, "sandbox.sum:2: invalid format"},
		{repo + " v1 h1:a== extra", "invalid format"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.content)
		require.Error(t, err, tt.content)
		assert.Contains(t, err.Error(), tt.want)
	}
}

func TestParseFile_MissingIsEmpty(t *testing.T) {
	f, err := ParseFile(filepath.Join(t.TempDir(), "sandbox.sum"))
	require.NoError(t, err)
	assert.Empty(t, f.Entries)
}

func TestFormat_Sorted(t *testing.T) {
	f := NewFile()
	f.Add("github.com/z/p", "v1.0.0", "", "h1:zzz==")
	f.Add("github.com/a/p", "v1.0.0", ImageSuffix("p.yaml"), "h1:bbb==")
	f.Add("github.com/a/p", "v1.0.0", "", "h1:aaa==")

	expected := "github.com/a/p v1.0.0 h1:aaa==\n" +
		"github.com/a/p v1.0.0/p.yaml h1:bbb==\n" +
		"github.com/z/p v1.0.0 h1:zzz==\n"
	assert.Equal(t, expected, Format(f))
	assert.Equal(t, "", Format(NewFile()))
}

func TestRoundTrip(t *testing.T) {
	original := NewFile()
	original.Add(repo, "v1.2.0", "", "h1:abc123==")
	original.Add(repo, "v1.2.0", "/out/io.smod", "h1:def456==")
	original.Add("example.com/other", "main", "", "h1:xyz789==")

	path := filepath.Join(t.TempDir(), "sandbox.sum")
	require.NoError(t, WriteFile(original, path))
	parsed, err := ParseFile(path)
	require.NoError(t, err)

	assert.Len(t, parsed.Entries, 3)
	for _, orig := range original.Entries {
		found := parsed.Get(orig.Repo, orig.Ref, orig.Suffix)
		require.NotNil(t, found, "entry not found: %v", orig)
		assert.Equal(t, orig.Hash, found.Hash)
	}
}

func TestFile_AddUpdateAndRemove(t *testing.T) {
	f := NewFile()
	f.Add(repo, "v1", "", "h1:old==")
	f.Add(repo, "v1", "", "h1:new==")
	f.Add(repo, "v1", "/a.yaml", "h1:a==")
	f.Add(repo, "v2", "", "h1:b==")

	require.Len(t, f.Entries, 3)
	assert.Equal(t, "h1:new==", f.Get(repo, "v1", "").Hash)

	assert.True(t, f.Remove(repo, "v1"))
	assert.Len(t, f.Entries, 1)
	assert.False(t, f.Remove(repo, "v1"))
}

func TestFile_Check(t *testing.T) {
	f := NewFile()
	f.Add(repo, "v1", "/a.yaml", "h1:a==")

	found, err := f.Check(repo, "v1", "/b.yaml", "h1:b==")
	assert.False(t, found)
	assert.NoError(t, err)

	found, err = f.Check(repo, "v1", "/a.yaml", "h1:a==")
	assert.True(t, found)
	assert.NoError(t, err)

	_, err = f.Check(repo, "v1", "/a.yaml", "h1:tampered==")
	var mismatch *HashMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "h1:a==", mismatch.Expected)
	assert.Equal(t, "h1:tampered==", mismatch.Actual)
}

func TestEntry_Key(t *testing.T) {
	assert.Equal(t, repo+" v1", Entry{Repo: repo, Ref: "v1"}.Key())
	assert.Equal(t, repo+" v1/out/io.smod", Entry{Repo: repo, Ref: "v1", Suffix: ImageSuffix("out/io.smod")}.Key())
	assert.Equal(t, "", ImageSuffix(""))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestHashDir_OnlyImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "io.yaml"), "name: io\n")
	writeFile(t, filepath.Join(dir, "out", "net.smod"), "\x81")

	hash1, err := HashDir(dir)
	require.NoError(t, err)
	assert.Regexp(t, `^h1:`, hash1)

	writeFile(t, filepath.Join(dir, "README.md"), "# docs\n")
	writeFile(t, filepath.Join(dir, ".git", "HEAD.yaml"), "ref: main\n")
	hash2, err := HashDir(dir)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2, "non-images and hidden directories are ignored")

	images, err := Images(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"io.yaml", filepath.Join("out", "net.smod")}, images)

	writeFile(t, filepath.Join(dir, "io.yaml"), "name: io2\n")
	hash3, err := HashDir(dir)
	require.NoError(t, err)
	assert.NotEqual(t, hash1, hash3)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "io.yaml"), "name: io\n")

	hash, err := HashDir(dir)
	require.NoError(t, err)
	assert.NoError(t, Verify(dir, hash))

	err = Verify(dir, "h1:wronghash==")
	var mismatch *HashMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "io.yaml")
	writeFile(t, path, "name: io\n")

	a, err := HashFile(path)
	require.NoError(t, err)
	b, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = HashFile(path + ".missing")
	assert.Error(t, err)
}
