package classpath

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Scanner discovers resources below a namespace across a search path.
// A Scanner holds no state between calls and may be reused.
type Scanner struct {
	searchPath SearchPathProvider
	fs         afero.Fs
	archives   ArchiveProvider
	logger     *log.Logger
}

// New creates a scanner over the given search path provider.
func New(searchPath SearchPathProvider, opts ...Option) *Scanner {
	o := processOptions(opts...)
	return &Scanner{
		searchPath: searchPath,
		fs:         o.fs,
		archives:   o.archives,
		logger:     o.logger,
	}
}

// NewWithEntries creates a scanner over a static search path. The options
// apply to both the search path and the scanner.
func NewWithEntries(entries []string, opts ...Option) *Scanner {
	return New(NewSearchPath(entries, opts...), opts...)
}

// Scan walks every root exposing namespace and maps each regular file found
// with mapper, keeping present results in visitation order. Roots are
// visited in provider order and results are not de-duplicated. Any failure
// aborts the scan and no partial result is returned.
func Scan[R any](ctx context.Context, s *Scanner, namespace string, mapper Mapper[R]) ([]R, error) {
	locations, relPath, err := s.roots(ctx, namespace)
	if err != nil {
		return nil, err
	}

	results := make([]R, 0)
	collect := func(r Resource) {
		if v, ok := mapper(r); ok {
			results = append(results, v)
		}
	}

	for _, loc := range locations {
		if err := s.walk(ctx, loc, relPath, collect); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Resources returns every resource below namespace.
func (s *Scanner) Resources(ctx context.Context, namespace string) ([]Resource, error) {
	return Scan(ctx, s, namespace, Identity)
}

// Roots returns the classified roots exposing namespace without walking them.
func (s *Scanner) Roots(ctx context.Context, namespace string) ([]Location, error) {
	locations, _, err := s.roots(ctx, namespace)
	return locations, err
}

func (s *Scanner) roots(ctx context.Context, namespace string) ([]Location, string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, "", err
	}
	relPath := NamespacePath(namespace)
	s.logger.Debug("scan path", "path", relPath)

	raws, err := s.searchPath.Locations(ctx, relPath)
	if err != nil {
		if errors.Is(err, ErrLocationLookup) {
			return nil, "", err
		}
		return nil, "", newScanError(ErrLocationLookup, "lookup", relPath, err)
	}

	locations := make([]Location, 0, len(raws))
	for _, raw := range raws {
		loc, err := ParseLocation(raw, relPath)
		if err != nil {
			return nil, "", err
		}
		locations = append(locations, loc)
	}
	return locations, relPath, nil
}

func (s *Scanner) walk(ctx context.Context, loc Location, relPath string, visit func(Resource)) error {
	switch loc.Kind {
	case KindArchive:
		return s.walkArchive(ctx, loc, relPath, visit)
	default:
		return s.walkDirectory(ctx, loc, relPath, visit)
	}
}

// mountArchive opens the archive behind loc and checks that relPath exists
// inside it. The caller closes the returned archive.
func (s *Scanner) mountArchive(ctx context.Context, loc Location, relPath string) (Archive, error) {
	path, err := loc.ArchivePath()
	if err != nil {
		return nil, err
	}

	archive, err := s.archives.OpenArchive(ctx, path)
	if err != nil {
		return nil, newScanError(ErrArchiveOpen, "mount", loc.Raw, err)
	}
	if !archive.Exists(relPath) {
		s.closeArchive(archive, path)
		return nil, newScanError(ErrArchiveOpen, "mount", loc.Raw,
			fmt.Errorf("%s: %w", relPath, os.ErrNotExist))
	}

	s.logger.Debug("mounted archive", "archive", path, "path", relPath)
	return archive, nil
}

func (s *Scanner) closeArchive(archive Archive, path string) {
	if err := archive.Close(); err != nil {
		s.logger.Warn("failed to close archive", "archive", path, "error", err)
	}
}

func (s *Scanner) walkArchive(ctx context.Context, loc Location, relPath string, visit func(Resource)) error {
	archive, err := s.mountArchive(ctx, loc, relPath)
	if err != nil {
		return err
	}
	defer s.closeArchive(archive, loc.Raw)

	base := removeTrailingSlash(loc.BaseDir)
	err = archive.Walk(ctx, relPath, func(info FileInfo) error {
		if !info.Regular {
			return nil
		}
		r := Resource{Base: base, Name: removeLeadingSlash(info.Path)}
		s.logger.Debug("found resource", "resource", r)
		visit(r)
		return nil
	})
	if err != nil {
		return newScanError(ErrTraversal, "walk", loc.Raw, err)
	}
	return nil
}

func (s *Scanner) walkDirectory(ctx context.Context, loc Location, relPath string, visit func(Resource)) error {
	baseDir := directoryPath(loc.BaseDir)
	root := filepath.Join(baseDir, filepath.FromSlash(relPath))

	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !s.isRegular(path, info) {
			return nil
		}

		name := filepath.ToSlash(strings.TrimPrefix(path, baseDir))
		r := Resource{Base: fileScheme + path, Name: removeLeadingSlash(name)}
		s.logger.Debug("found resource", "resource", r)
		visit(r)
		return nil
	})
	if err != nil {
		return newScanError(ErrTraversal, "walk", loc.Raw, err)
	}
	return nil
}

// isRegular follows symlinks the way a regular-file check does: a link to
// a regular file counts, links to directories and broken links do not.
func (s *Scanner) isRegular(path string, info os.FileInfo) bool {
	if info.Mode().IsRegular() {
		return true
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false
	}
	target, err := s.fs.Stat(path)
	if err != nil {
		return false
	}
	return target.Mode().IsRegular()
}

// Open returns a stream over the content of a scanned resource.
func (s *Scanner) Open(ctx context.Context, r Resource) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	switch {
	case strings.HasPrefix(r.Base, archiveScheme):
		path, err := archiveBasePath(r.Base)
		if err != nil {
			return nil, err
		}
		archive, err := s.archives.OpenArchive(ctx, path)
		if err != nil {
			return nil, newScanError(ErrArchiveOpen, "open", r.Base, err)
		}
		rc, err := archive.Open(r.Name)
		if err != nil {
			s.closeArchive(archive, path)
			return nil, newScanError(ErrArchiveOpen, "open", r.Base+"/"+r.Name, err)
		}
		return &archiveReader{ReadCloser: rc, archive: archive}, nil

	case strings.HasPrefix(r.Base, fileScheme):
		path := localPath(strings.TrimPrefix(r.Base, fileScheme))
		f, err := s.fs.Open(path)
		if err != nil {
			return nil, newScanError(ErrTraversal, "open", path, err)
		}
		return f, nil

	default:
		return nil, fmt.Errorf("%w: resource base %q", ErrNotSupported, r.Base)
	}
}

// ReadResource opens r and hands its content to fn.
func ReadResource[T any](ctx context.Context, s *Scanner, r Resource, fn func(io.Reader) (T, error)) (T, error) {
	var zero T

	rc, err := s.Open(ctx, r)
	if err != nil {
		return zero, err
	}
	defer rc.Close()

	return fn(rc)
}

// archiveReader closes the archive together with the entry stream.
type archiveReader struct {
	io.ReadCloser
	archive Archive
}

func (r *archiveReader) Close() error {
	return errors.Join(r.ReadCloser.Close(), r.archive.Close())
}
