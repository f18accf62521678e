package classpath_test

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/classpath"
	_ "github.com/gobeaver/classpath/driver/zip"
)

type file struct {
	name    string
	content string
}

var mightenFiles = []file{
	{"io/github/mighten/scan/Scanner.class", "scanner"},
	{"io/github/mighten/scan/README.md", "readme"},
	{"io/github/mighten/scan/util/Paths.class", "paths"},
}

func writeTree(t testing.TB, fsys afero.Fs, root string, files ...file) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f.name))
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(f.content), 0o644))
	}
}

// writeJar stores files in the given order. Names ending in "/" become
// directory entries.
func writeJar(t testing.TB, fsys afero.Fs, path string, files ...file) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))

	out, err := fsys.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(out)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		if !strings.HasSuffix(f.name, "/") {
			_, err = io.WriteString(w, f.content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}

func newScanner(fsys afero.Fs, entries ...string) *classpath.Scanner {
	return classpath.NewWithEntries(entries, classpath.WithFS(fsys))
}

func resourceNames(resources []classpath.Resource) []string {
	out := make([]string, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.Name)
	}
	return out
}

type staticProvider struct {
	locations []string
	err       error
}

func (p staticProvider) Locations(context.Context, string) ([]string, error) {
	return p.locations, p.err
}

// failingFs fails Open and Stat for paths ending in the configured suffixes.
type failingFs struct {
	afero.Fs
	failOpen string
	failStat string
}

func (f failingFs) Open(name string) (afero.File, error) {
	if f.failOpen != "" && strings.HasSuffix(name, f.failOpen) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

func (f failingFs) Stat(name string) (os.FileInfo, error) {
	if f.failStat != "" && strings.HasSuffix(name, f.failStat) {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Stat(name)
}

type countingProvider struct {
	inner  classpath.ArchiveProvider
	opened int
	closed int
}

func (p *countingProvider) OpenArchive(ctx context.Context, path string) (classpath.Archive, error) {
	a, err := p.inner.OpenArchive(ctx, path)
	if err != nil {
		return nil, err
	}
	p.opened++
	return &countingArchive{Archive: a, p: p}, nil
}

type countingArchive struct {
	classpath.Archive
	p *countingProvider
}

func (a *countingArchive) Close() error {
	a.p.closed++
	return a.Archive.Close()
}

func TestScanNoRoots(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", file{"org/other/X.class", "x"})

	s := newScanner(fsys, "/cp", "/missing", "/also/missing.jar")

	resources, err := s.Resources(context.Background(), "io.github")
	require.NoError(t, err)
	assert.NotNil(t, resources)
	assert.Empty(t, resources)

	roots, err := s.Roots(context.Background(), "io.github")
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestScanDirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", file{"a/B.class", "b"})

	s := newScanner(fsys, "/cp")

	resources, err := s.Resources(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, resources, 1)

	r := resources[0]
	assert.Equal(t, "a/B.class", r.Name)
	assert.Equal(t, "file:"+filepath.FromSlash("/cp/a/B.class"), r.Base)
	assert.Equal(t, "B.class", r.Rel("a"))
}

func TestScanClassNames(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", mightenFiles...)

	s := newScanner(fsys, "/cp")

	types, err := classpath.Scan(context.Background(), s, "io.github.mighten.scan", classpath.ClassName)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"io.github.mighten.scan.Scanner",
		"io.github.mighten.scan.util.Paths",
	}, types)

	sub, err := classpath.Scan(context.Background(), s, "io.github.mighten.scan.util", classpath.ClassName)
	require.NoError(t, err)
	assert.Equal(t, []string{"io.github.mighten.scan.util.Paths"}, sub)
}

func TestScanArchive(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeJar(t, fsys, "/lib/app.jar",
		file{"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"},
		file{"io/", ""},
		file{"io/github/mighten/scan/Scanner.class", "scanner"},
		file{"io/github/mighten/scan/README.md", "readme"},
		file{"io/github/mighten/scan/util/Paths.class", "paths"},
	)

	s := newScanner(fsys, "/lib/app.jar")

	resources, err := s.Resources(context.Background(), "io.github.mighten.scan")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"io/github/mighten/scan/Scanner.class",
		"io/github/mighten/scan/README.md",
		"io/github/mighten/scan/util/Paths.class",
	}, resourceNames(resources))

	for _, r := range resources {
		assert.Equal(t, "jar:file:/lib/app.jar!", r.Base)
	}

	types, err := classpath.Scan(context.Background(), s, "io.github.mighten.scan", classpath.ClassName)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"io.github.mighten.scan.Scanner",
		"io.github.mighten.scan.util.Paths",
	}, types)
}

func TestDirectoryAndArchiveNamesMatch(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", mightenFiles...)
	writeJar(t, fsys, "/lib/app.jar", mightenFiles...)

	ctx := context.Background()
	fromDir, err := newScanner(fsys, "/cp").Resources(ctx, "io.github")
	require.NoError(t, err)
	fromJar, err := newScanner(fsys, "/lib/app.jar").Resources(ctx, "io.github")
	require.NoError(t, err)

	dirNames := resourceNames(fromDir)
	jarNames := resourceNames(fromJar)
	sort.Strings(dirNames)
	sort.Strings(jarNames)
	assert.Equal(t, dirNames, jarNames)
	assert.Len(t, dirNames, 3)
}

func TestScanMixedRootsInOrder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", file{"io/app/A.class", "a"})
	writeJar(t, fsys, "/lib/app.jar", file{"io/app/B.class", "b"})
	writeTree(t, fsys, "/lib", file{"notes.txt", "not an archive"})

	s := newScanner(fsys, "/cp", "/lib/notes.txt", "/lib/app.jar", "/missing")
	ctx := context.Background()

	roots, err := s.Roots(ctx, "io.app")
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, classpath.KindDirectory, roots[0].Kind)
	assert.Equal(t, "/cp/", roots[0].BaseDir)
	assert.Equal(t, classpath.KindArchive, roots[1].Kind)
	assert.Equal(t, "jar:file:/lib/app.jar!/io/app/", roots[1].Raw)
	assert.Equal(t, "jar:file:/lib/app.jar!/", roots[1].BaseDir)

	resources, err := s.Resources(ctx, "io.app")
	require.NoError(t, err)
	assert.Equal(t, []classpath.Resource{
		{Base: "file:" + filepath.FromSlash("/cp/io/app/A.class"), Name: "io/app/A.class"},
		{Base: "jar:file:/lib/app.jar!", Name: "io/app/B.class"},
	}, resources)
}

func TestScanOverlappingRoots(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", file{"a/B.class", "b"})

	s := newScanner(fsys, "/cp", "/cp")

	names, err := classpath.Scan(context.Background(), s, "a", classpath.Names)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/B.class", "a/B.class"}, names)
}

func TestScanMapperFiltering(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", mightenFiles...)

	s := newScanner(fsys, "/cp")

	var seen []string
	mapper := func(r classpath.Resource) (int, bool) {
		seen = append(seen, r.Name)
		if strings.HasSuffix(r.Name, ".md") {
			return 0, false
		}
		return len(r.Name), true
	}

	lengths, err := classpath.Scan(context.Background(), s, "io.github.mighten", mapper)
	require.NoError(t, err)
	assert.Len(t, seen, 3)
	assert.Equal(t, []int{
		len("io/github/mighten/scan/Scanner.class"),
		len("io/github/mighten/scan/util/Paths.class"),
	}, lengths)

	sel := classpath.MustGlob("io/github/mighten/scan/*.class")
	direct, err := classpath.Scan(context.Background(), s, "io.github.mighten",
		classpath.Filter(sel, classpath.ClassName))
	require.NoError(t, err)
	assert.Equal(t, []string{"io.github.mighten.scan.Scanner"}, direct)
}

func TestScanInvalidNamespace(t *testing.T) {
	s := newScanner(afero.NewMemMapFs(), "/cp")

	for _, ns := range []string{"", "a..b", ".a"} {
		result, err := s.Resources(context.Background(), ns)
		assert.ErrorIs(t, err, classpath.ErrInvalidNamespace, ns)
		assert.Nil(t, result)
	}
}

func TestScanLocationLookupError(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		cause := errors.New("registry unavailable")
		s := classpath.New(staticProvider{err: cause}, classpath.WithFS(afero.NewMemMapFs()))

		result, err := s.Resources(context.Background(), "a")
		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, classpath.ErrLocationLookup)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("unreadable entry", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writeTree(t, fsys, "/cp2", file{"a/B.class", "b"})

		s := newScanner(failingFs{Fs: fsys, failStat: "/cp2"}, "/cp2")
		_, err := s.Resources(context.Background(), "a")
		assert.ErrorIs(t, err, classpath.ErrLocationLookup)
		assert.ErrorIs(t, err, os.ErrPermission)
	})

	t.Run("cancelled", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writeTree(t, fsys, "/cp", file{"a/B.class", "b"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newScanner(fsys, "/cp").Resources(ctx, "a")
		assert.ErrorIs(t, err, classpath.ErrLocationLookup)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestScanMalformedLocation(t *testing.T) {
	s := classpath.New(staticProvider{locations: []string{"file:/cp/other/"}},
		classpath.WithFS(afero.NewMemMapFs()))

	result, err := s.Resources(context.Background(), "a")
	assert.ErrorIs(t, err, classpath.ErrMalformedLocation)
	assert.Nil(t, result)

	s = classpath.New(staticProvider{locations: []string{"file:/cp/%zz/a/"}},
		classpath.WithFS(afero.NewMemMapFs()))
	_, err = s.Resources(context.Background(), "a")
	assert.ErrorIs(t, err, classpath.ErrMalformedLocation)
}

func TestScanArchiveOpenError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeJar(t, fsys, "/lib/app.jar", file{"a/B.class", "b"})
	writeTree(t, fsys, "/lib", file{"app.rar", "not supported"})

	tests := map[string]struct {
		location string
		ns       string
		cause    error
	}{
		"missing archive":     {location: "jar:file:/lib/missing.jar!/a/", ns: "a", cause: os.ErrNotExist},
		"path not in archive": {location: "jar:file:/lib/app.jar!/c/", ns: "c", cause: os.ErrNotExist},
		"no driver":           {location: "jar:file:/lib/app.rar!/a/", ns: "a", cause: classpath.ErrNotSupported},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := classpath.New(staticProvider{locations: []string{tt.location}}, classpath.WithFS(fsys))

			result, err := s.Resources(context.Background(), tt.ns)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, classpath.IsArchiveOpen(err))
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestScanTraversalError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp",
		file{"a/B.class", "b"},
		file{"a/broken/C.class", "c"},
	)
	writeTree(t, fsys, "/cp2", file{"a/D.class", "d"})

	s := newScanner(failingFs{Fs: fsys, failOpen: "broken"}, "/cp2", "/cp")

	var visited int
	result, err := classpath.Scan(context.Background(), s, "a", func(r classpath.Resource) (string, bool) {
		visited++
		return r.Name, true
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, classpath.IsTraversal(err))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, 2, visited)

	var scanErr *classpath.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "walk", scanErr.Op)
	assert.Equal(t, "file:/cp/a/", scanErr.Location)
}

func TestScanCancelledDuringWalk(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", file{"a/B.class", "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := classpath.New(staticProvider{locations: []string{"file:/cp/a/"}}, classpath.WithFS(fsys))
	_, err := s.Resources(ctx, "a")
	assert.ErrorIs(t, err, classpath.ErrTraversal)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanEscapedLocation(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/my classes", file{"a/B.class", "b"})

	s := newScanner(fsys, "/my classes")
	ctx := context.Background()

	roots, err := s.Roots(ctx, "a")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "file:/my%20classes/a/", roots[0].Raw)
	assert.Equal(t, "/my classes/", roots[0].BaseDir)

	resources, err := s.Resources(ctx, "a")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "a/B.class", resources[0].Name)
	assert.Equal(t, "file:"+filepath.FromSlash("/my classes/a/B.class"), resources[0].Base)
}

func TestScanSymlinks(t *testing.T) {
	dir := t.TempDir()
	cp := filepath.Join(dir, "cp")
	writeTree(t, afero.NewOsFs(), cp, file{"a/B.class", "b"})
	writeTree(t, afero.NewOsFs(), dir, file{"other/C.class", "c"})

	links := map[string]string{
		filepath.Join(cp, "a", "link.class"):   filepath.Join(cp, "a", "B.class"),
		filepath.Join(cp, "a", "dirlink"):      filepath.Join(dir, "other"),
		filepath.Join(cp, "a", "broken.class"): filepath.Join(dir, "nowhere.class"),
	}
	for link, target := range links {
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
	}

	s := classpath.NewWithEntries([]string{cp})

	names, err := classpath.Scan(context.Background(), s, "a", classpath.Names)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/B.class", "a/link.class"}, names)
}

func TestOpenResource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeTree(t, fsys, "/cp", file{"io/app/A.txt", "hello"})
	writeJar(t, fsys, "/lib/app.jar", file{"io/app/B.txt", "from jar"})

	provider := &countingProvider{inner: classpath.DefaultArchiveProvider(fsys)}
	s := classpath.NewWithEntries([]string{"/cp", "/lib/app.jar"},
		classpath.WithFS(fsys), classpath.WithArchiveProvider(provider))
	ctx := context.Background()

	resources, err := s.Resources(ctx, "io.app")
	require.NoError(t, err)
	require.Len(t, resources, 2)

	readAll := func(r io.Reader) (string, error) {
		b, err := io.ReadAll(r)
		return string(b), err
	}

	content, err := classpath.ReadResource(ctx, s, resources[0], readAll)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	content, err = classpath.ReadResource(ctx, s, resources[1], readAll)
	require.NoError(t, err)
	assert.Equal(t, "from jar", content)

	sum, err := s.Checksum(ctx, resources[0], classpath.ChecksumSHA256)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	jarSum, err := s.Checksum(ctx, resources[1], classpath.ChecksumXXHash)
	require.NoError(t, err)
	assert.Len(t, jarSum, 16)

	_, err = s.Checksum(ctx, resources[0], "whirlpool")
	assert.ErrorIs(t, err, classpath.ErrNotSupported)

	assert.Positive(t, provider.opened)
	assert.Equal(t, provider.opened, provider.closed)
}

func TestOpenResourceSpecialCharacters(t *testing.T) {
	dirs := map[string]string{
		"space":    "/lib/a b",
		"hash":     "/lib/c#d",
		"percent":  "/lib/e%41f",
		"question": "/lib/g?h",
		"bang":     "/lib/x!y",
	}

	for name, dir := range dirs {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeTree(t, fsys, dir+"/cp", file{"io/app/A.txt", "from dir"})
			writeJar(t, fsys, dir+"/app.jar", file{"io/app/B.txt", "from jar"})

			s := classpath.NewWithEntries([]string{dir + "/cp", dir + "/app.jar"}, classpath.WithFS(fsys))
			ctx := context.Background()

			resources, err := s.Resources(ctx, "io.app")
			require.NoError(t, err)
			require.Len(t, resources, 2)
			assert.Equal(t, "jar:file:"+dir+"/app.jar!", resources[1].Base)

			readAll := func(r io.Reader) (string, error) {
				b, err := io.ReadAll(r)
				return string(b), err
			}

			content, err := classpath.ReadResource(ctx, s, resources[0], readAll)
			require.NoError(t, err)
			assert.Equal(t, "from dir", content)

			content, err = classpath.ReadResource(ctx, s, resources[1], readAll)
			require.NoError(t, err)
			assert.Equal(t, "from jar", content)
		})
	}
}

func TestOpenResourceErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeJar(t, fsys, "/lib/app.jar", file{"a/B.class", "b"})
	s := newScanner(fsys, "/lib/app.jar")
	ctx := context.Background()

	_, err := s.Open(ctx, classpath.Resource{Base: "vfs:/x", Name: "a/B.class"})
	assert.ErrorIs(t, err, classpath.ErrNotSupported)

	_, err = s.Open(ctx, classpath.Resource{Base: "jar:file:/lib/app.jar!", Name: "a/Missing.class"})
	assert.ErrorIs(t, err, classpath.ErrArchiveOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Open(ctx, classpath.Resource{Base: "file:/cp/a/Gone.class", Name: "a/Gone.class"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Open(cancelled, classpath.Resource{Base: "jar:file:/lib/app.jar!", Name: "a/B.class"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArchiveHandlesReleased(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeJar(t, fsys, "/lib/one.jar", file{"a/A.class", "a"})
	writeJar(t, fsys, "/lib/two.zip", file{"a/B.class", "b"})

	provider := &countingProvider{inner: classpath.DefaultArchiveProvider(fsys)}
	s := classpath.NewWithEntries([]string{"/lib/one.jar", "/lib/two.zip"},
		classpath.WithFS(fsys), classpath.WithArchiveProvider(provider))

	names, err := classpath.Scan(context.Background(), s, "a", classpath.Names)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A.class", "a/B.class"}, names)

	// one open for the lookup and one for the walk, per archive
	assert.Equal(t, 4, provider.opened)
	assert.Equal(t, 4, provider.closed)
}

func TestArchiveExtensionsOption(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeJar(t, fsys, "/lib/one.jar", file{"a/A.class", "a"})
	writeJar(t, fsys, "/lib/two.zip", file{"a/B.class", "b"})

	s := classpath.NewWithEntries([]string{"/lib/one.jar", "/lib/two.zip"},
		classpath.WithFS(fsys), classpath.WithArchiveExtensions("JAR"))

	names, err := classpath.Scan(context.Background(), s, "a", classpath.Names)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/A.class"}, names)

	assert.Contains(t, classpath.ArchiveExtensions(), ".jar")
	assert.Contains(t, classpath.ArchiveExtensions(), ".zip")
}
