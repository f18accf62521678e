package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/gobeaver/classpath"
)

// Adapter provides a read-only, indexed view of a ZIP or JAR archive.
// The central directory is read once on open; lookups and walks are served
// from the in-memory index.
type Adapter struct {
	mu     sync.RWMutex
	path   string
	file   afero.File
	reader *zip.Reader
	files  map[string]*zipEntry // In-memory index keyed by normalized path
	order  []string             // Index keys in central directory order
	closed bool
}

// zipEntry represents a file or directory in the ZIP
type zipEntry struct {
	file  *zip.File // nil for directories implied by nested entries
	isDir bool
}

// Open opens an existing ZIP file on the local filesystem
func Open(zipPath string) (*Adapter, error) {
	return OpenFS(afero.NewOsFs(), zipPath)
}

// OpenFS opens an existing ZIP file stored on fsys
func OpenFS(fsys afero.Fs, zipPath string) (*Adapter, error) {
	f, err := fsys.Open(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat zip: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("failed to open zip: %s: %w", zipPath, classpath.ErrNotSupported)
	}

	reader, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read zip: %w", err)
	}

	a := &Adapter{
		path:   zipPath,
		file:   f,
		reader: reader,
		files:  make(map[string]*zipEntry),
	}

	// Build file index
	for _, zf := range reader.File {
		name := normalizePath(zf.Name)
		if name == "" || !isValidPath(name) {
			continue
		}

		// Also add parent directories
		a.ensureParentDirs(name)

		if _, exists := a.files[name]; exists {
			continue
		}
		a.files[name] = &zipEntry{
			file:  zf,
			isDir: zf.FileInfo().IsDir(),
		}
		a.order = append(a.order, name)
	}

	return a, nil
}

// Path returns the path the archive was opened from
func (a *Adapter) Path() string {
	return a.path
}

// Close closes the underlying archive file
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	return a.file.Close()
}

// Exists implements classpath.Archive
func (a *Adapter) Exists(dir string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	dir = normalizePath(dir)
	if dir == "" {
		return true
	}
	_, exists := a.files[dir]
	return exists
}

// Walk implements classpath.Archive
func (a *Adapter) Walk(ctx context.Context, dir string, fn func(info classpath.FileInfo) error) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return &fs.PathError{Op: "walk", Path: dir, Err: fs.ErrClosed}
	}

	dir = normalizePath(dir)
	if dir != "" {
		entry, exists := a.files[dir]
		if !exists {
			return &fs.PathError{Op: "walk", Path: dir, Err: fs.ErrNotExist}
		}
		if !entry.isDir {
			return fn(a.fileInfo(dir, entry))
		}
	}

	for _, name := range a.order {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if dir != "" && !strings.HasPrefix(name, dir+"/") {
			continue
		}
		if err := fn(a.fileInfo(name, a.files[name])); err != nil {
			return err
		}
	}

	return nil
}

// Open implements classpath.Archive
func (a *Adapter) Open(name string) (io.ReadCloser, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrClosed}
	}

	name = normalizePath(name)
	entry, exists := a.files[name]
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if entry.isDir {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	rc, err := entry.file.Open()
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return rc, nil
}

// ListContents lists the immediate children of dir, or every descendant
// when recursive is true.
func (a *Adapter) ListContents(ctx context.Context, dir string, recursive bool) ([]classpath.FileInfo, error) {
	var files []classpath.FileInfo
	prefix := normalizePath(dir)

	err := a.Walk(ctx, prefix, func(info classpath.FileInfo) error {
		rel := strings.TrimPrefix(info.Path, prefix)
		rel = strings.TrimPrefix(rel, "/")
		if !recursive && strings.Contains(rel, "/") {
			return nil
		}
		files = append(files, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (a *Adapter) fileInfo(name string, entry *zipEntry) classpath.FileInfo {
	info := classpath.FileInfo{
		Name:  path.Base(name),
		Path:  name,
		IsDir: entry.isDir,
	}
	if entry.file != nil {
		fi := entry.file.FileInfo()
		info.Size = int64(entry.file.UncompressedSize64)
		info.ModTime = entry.file.Modified
		info.Regular = !entry.isDir && fi.Mode().IsRegular()
	}
	return info
}

func (a *Adapter) ensureParentDirs(filePath string) {
	var parents []string
	dir := path.Dir(filePath)
	for dir != "" && dir != "." && dir != "/" {
		if _, exists := a.files[dir]; exists {
			break
		}
		parents = append(parents, dir)
		dir = path.Dir(dir)
	}
	// Outermost first so implied directories precede their children
	for i := len(parents) - 1; i >= 0; i-- {
		a.files[parents[i]] = &zipEntry{isDir: true}
		a.order = append(a.order, parents[i])
	}
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

func isValidPath(p string) bool {
	return p != ".." && !strings.HasPrefix(p, "../")
}

// Ensure Adapter implements interfaces
var _ classpath.Archive = (*Adapter)(nil)
