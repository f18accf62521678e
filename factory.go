package classpath

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Archive is a read-only view of an archive's entry index.
type Archive interface {
	// Exists reports whether dir names a file or directory in the archive.
	Exists(dir string) bool

	// Walk visits every entry under dir in the archive's natural order.
	// dir itself is visited first when it is a file entry.
	Walk(ctx context.Context, dir string, fn func(info FileInfo) error) error

	// Open returns a stream for a file entry.
	Open(name string) (io.ReadCloser, error)

	// Close releases the archive handle.
	Close() error
}

// ArchiveProvider opens archives named by local paths.
type ArchiveProvider interface {
	OpenArchive(ctx context.Context, path string) (Archive, error)
}

// ArchiveDriver opens an archive file stored on fsys
type ArchiveDriver func(fsys afero.Fs, path string) (Archive, error)

var (
	archiveDrivers = make(map[string]ArchiveDriver)
	driverMutex    sync.RWMutex
)

// RegisterArchiveDriver registers a driver for an archive file extension
// such as ".jar". Extensions are matched case-insensitively.
func RegisterArchiveDriver(ext string, driver ArchiveDriver) {
	driverMutex.Lock()
	defer driverMutex.Unlock()
	archiveDrivers[normalizeExt(ext)] = driver
}

// ArchiveExtensions returns the registered archive extensions, sorted.
func ArchiveExtensions() []string {
	driverMutex.RLock()
	defer driverMutex.RUnlock()

	exts := make([]string, 0, len(archiveDrivers))
	for ext := range archiveDrivers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func lookupArchiveDriver(path string) (ArchiveDriver, bool) {
	driverMutex.RLock()
	defer driverMutex.RUnlock()
	driver, ok := archiveDrivers[normalizeExt(filepath.Ext(path))]
	return driver, ok
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// registryProvider opens archives through the registered drivers.
type registryProvider struct {
	fs afero.Fs
}

// DefaultArchiveProvider returns a provider backed by RegisterArchiveDriver
// reading archives from fsys. A nil fsys means the OS filesystem.
func DefaultArchiveProvider(fsys afero.Fs) ArchiveProvider {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return registryProvider{fs: fsys}
}

func (p registryProvider) OpenArchive(ctx context.Context, path string) (Archive, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	driver, ok := lookupArchiveDriver(path)
	if !ok {
		return nil, fmt.Errorf("%w: no archive driver for %q", ErrNotSupported, filepath.Ext(path))
	}
	return driver(p.fs, path)
}
