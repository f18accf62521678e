package classpath

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// SearchPathProvider finds the roots that expose a namespace path.
type SearchPathProvider interface {
	// Locations returns every root location exposing relPath, in provider
	// order. An empty result is not an error.
	Locations(ctx context.Context, relPath string) ([]string, error)
}

// SearchPath is a SearchPathProvider over a fixed list of directories and
// archives, consulted in order. Missing entries are ignored; entries are
// not de-duplicated.
type SearchPath struct {
	entries  []string
	fs       afero.Fs
	archives ArchiveProvider
	exts     map[string]bool
	logger   *log.Logger
}

// NewSearchPath creates a search path over entries. Entries are resolved to
// absolute paths when Locations runs.
func NewSearchPath(entries []string, opts ...Option) *SearchPath {
	o := processOptions(opts...)

	exts := make(map[string]bool)
	for _, ext := range o.archiveExtensions {
		exts[normalizeExt(ext)] = true
	}

	return &SearchPath{
		entries:  append([]string(nil), entries...),
		fs:       o.fs,
		archives: o.archives,
		exts:     exts,
		logger:   o.logger,
	}
}

// Entries returns a copy of the configured entries.
func (p *SearchPath) Entries() []string {
	return append([]string(nil), p.entries...)
}

// Locations implements SearchPathProvider
func (p *SearchPath) Locations(ctx context.Context, relPath string) ([]string, error) {
	var locations []string

	for _, entry := range p.entries {
		select {
		case <-ctx.Done():
			return nil, newScanError(ErrLocationLookup, "lookup", entry, ctx.Err())
		default:
		}

		abs, err := filepath.Abs(entry)
		if err != nil {
			return nil, newScanError(ErrLocationLookup, "lookup", entry, err)
		}

		info, err := p.fs.Stat(abs)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				p.logger.Debug("search path entry missing", "entry", abs)
				continue
			}
			return nil, newScanError(ErrLocationLookup, "lookup", abs, err)
		}

		if info.IsDir() {
			found, err := p.dirExposes(abs, relPath)
			if err != nil {
				return nil, newScanError(ErrLocationLookup, "lookup", abs, err)
			}
			if found {
				locations = append(locations, directoryLocation(abs, relPath))
			}
			continue
		}

		if !p.isArchive(abs) {
			continue
		}

		found, err := p.archiveExposes(ctx, abs, relPath)
		if err != nil {
			return nil, newScanError(ErrLocationLookup, "lookup", abs, err)
		}
		if found {
			locations = append(locations, archiveLocation(abs, relPath))
		}
	}

	return locations, nil
}

func (p *SearchPath) dirExposes(dir, relPath string) (bool, error) {
	_, err := p.fs.Stat(filepath.Join(dir, filepath.FromSlash(relPath)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (p *SearchPath) archiveExposes(ctx context.Context, archive, relPath string) (bool, error) {
	a, err := p.archives.OpenArchive(ctx, archive)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			p.logger.Warn("failed to close archive", "archive", archive, "error", cerr)
		}
	}()
	return a.Exists(relPath), nil
}

func (p *SearchPath) isArchive(path string) bool {
	ext := normalizeExt(filepath.Ext(path))
	if len(p.exts) > 0 {
		return p.exts[ext]
	}
	_, ok := lookupArchiveDriver(path)
	return ok
}
