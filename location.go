package classpath

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const (
	fileScheme    = "file:"
	archiveScheme = "jar:"
	// archiveSeparator splits an archive location into the archive URL and
	// the entry path inside it.
	archiveSeparator = "!/"
)

// Kind tells how a root is backed.
type Kind int

const (
	// KindDirectory is a plain directory tree. Unknown schemes fall here.
	KindDirectory Kind = iota
	// KindArchive is a directory inside an archive file.
	KindArchive
)

// String returns a human-readable kind name
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Location is a root that exposes a namespace path.
type Location struct {
	// Raw is the location as reported by the search path provider.
	Raw string
	// Decoded is Raw with percent escapes decoded and one trailing
	// separator removed.
	Decoded string
	// BaseDir is Decoded without the namespace path and without a leading
	// file: marker.
	BaseDir string
	// Kind is derived from the scheme of Raw.
	Kind Kind
}

// NamespacePath converts a dotted namespace into a slash separated path.
func NamespacePath(namespace string) string {
	return strings.ReplaceAll(namespace, ".", "/")
}

func validateNamespace(namespace string) error {
	if strings.TrimSpace(namespace) == "" {
		return newScanError(ErrInvalidNamespace, "scan", "", fmt.Errorf("namespace is empty"))
	}
	for _, part := range strings.Split(namespace, ".") {
		if part == "" || strings.ContainsAny(part, "/\\") {
			return newScanError(ErrInvalidNamespace, "scan", namespace, fmt.Errorf("bad segment %q", part))
		}
	}
	return nil
}

// ParseLocation classifies a raw root location for the given namespace path.
func ParseLocation(raw, relPath string) (Location, error) {
	if raw == "" {
		return Location{}, newScanError(ErrMalformedLocation, "parse", raw, fmt.Errorf("empty location"))
	}
	if _, err := url.Parse(raw); err != nil {
		return Location{}, newScanError(ErrMalformedLocation, "parse", raw, err)
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return Location{}, newScanError(ErrMalformedLocation, "parse", raw, err)
	}
	decoded = removeTrailingSlash(decoded)

	base, ok := strings.CutSuffix(decoded, relPath)
	if !ok {
		return Location{}, newScanError(ErrMalformedLocation, "parse", raw,
			fmt.Errorf("location does not end with %q", relPath))
	}
	base = strings.TrimPrefix(base, fileScheme)

	loc := Location{
		Raw:     raw,
		Decoded: decoded,
		BaseDir: base,
		Kind:    KindDirectory,
	}
	if strings.HasPrefix(raw, archiveScheme) {
		loc.Kind = KindArchive
	}
	return loc, nil
}

// ArchivePath returns the local path of the archive behind an archive
// location.
func (l Location) ArchivePath() (string, error) {
	if l.Kind != KindArchive {
		return "", newScanError(ErrMalformedLocation, "archive", l.Raw, fmt.Errorf("not an archive location"))
	}
	return archiveFilePath(l.Raw)
}

// archiveFilePath extracts the archive file path from an escaped
// jar:<url>!/<entry> location.
func archiveFilePath(location string) (string, error) {
	rest, ok := strings.CutPrefix(location, archiveScheme)
	if !ok {
		return "", newScanError(ErrMalformedLocation, "archive", location, fmt.Errorf("missing %q scheme", archiveScheme))
	}
	if i := strings.Index(rest, archiveSeparator); i >= 0 {
		rest = rest[:i]
	} else {
		rest = strings.TrimSuffix(rest, "!")
	}
	u, err := url.Parse(rest)
	if err != nil {
		return "", newScanError(ErrMalformedLocation, "archive", location, err)
	}
	p := u.Path
	if u.Scheme == "" || u.Opaque != "" {
		if p, err = url.PathUnescape(strings.TrimPrefix(rest, fileScheme)); err != nil {
			return "", newScanError(ErrMalformedLocation, "archive", location, err)
		}
	}
	if p == "" {
		return "", newScanError(ErrMalformedLocation, "archive", location, fmt.Errorf("empty archive path"))
	}
	return localPath(p), nil
}

// archiveBasePath extracts the archive file path from a decoded archive base
// such as jar:file:/lib/app.jar!. The base is not unescaped again, so '#',
// '?' and '%' stay part of the path.
func archiveBasePath(base string) (string, error) {
	rest, ok := strings.CutPrefix(base, archiveScheme)
	if !ok {
		return "", newScanError(ErrMalformedLocation, "archive", base, fmt.Errorf("missing %q scheme", archiveScheme))
	}
	rest = strings.TrimSuffix(rest, "!")
	rest = strings.TrimPrefix(rest, fileScheme)
	rest = strings.TrimPrefix(rest, "//")
	if rest == "" {
		return "", newScanError(ErrMalformedLocation, "archive", base, fmt.Errorf("empty archive path"))
	}
	return localPath(rest), nil
}

// directoryPath turns a decoded base directory into a cleaned local path.
func directoryPath(base string) string {
	base = strings.TrimPrefix(base, "//")
	return localPath(base)
}

// localPath converts a slash path into a host path. "/C:/x" style drive
// paths lose their leading slash.
func localPath(p string) string {
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.Clean(filepath.FromSlash(p))
}

// directoryLocation builds the file: location for a directory exposing
// relPath.
func directoryLocation(dir, relPath string) string {
	return fileScheme + escapePath(joinSlash(filepath.ToSlash(dir), relPath)) + "/"
}

// archiveLocation builds the jar: location for relPath inside an archive.
func archiveLocation(archive, relPath string) string {
	return archiveScheme + fileScheme + escapePath(filepath.ToSlash(archive)) + archiveSeparator + escapePath(relPath) + "/"
}

func escapePath(p string) string {
	if !strings.HasPrefix(p, "/") && len(p) >= 2 && p[1] == ':' {
		p = "/" + p
	}
	return (&url.URL{Path: p}).EscapedPath()
}

func joinSlash(dir, rel string) string {
	if rel == "" {
		return dir
	}
	return strings.TrimSuffix(dir, "/") + "/" + rel
}

func removeLeadingSlash(s string) string {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "\\") {
		return s[1:]
	}
	return s
}

func removeTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") || strings.HasSuffix(s, "\\") {
		return s[:len(s)-1]
	}
	return s
}
