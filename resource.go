package classpath

import (
	"strings"
	"time"
)

// Resource is a file discovered under a scanned namespace.
type Resource struct {
	// Base identifies where the resource came from. For archive roots it is
	// the archive root shared by every record of that root
	// (jar:file:/lib/app.jar!). For directory roots it is file: followed by
	// the absolute path of the file itself.
	Base string

	// Name is the path of the file relative to its search path entry, with
	// forward slashes and no leading separator. It keeps the namespace path:
	// scanning "a" over a/B.class gives "a/B.class", and Rel("a") gives "B.class".
	Name string
}

// String returns the resource as base plus name
func (r Resource) String() string {
	return r.Base + "|" + r.Name
}

// Rel returns Name relative to the given namespace. Names outside the
// namespace are returned unchanged.
func (r Resource) Rel(namespace string) string {
	prefix := NamespacePath(namespace)
	if prefix == "" {
		return r.Name
	}
	if r.Name == prefix {
		return ""
	}
	if rel, ok := strings.CutPrefix(r.Name, prefix+"/"); ok {
		return rel
	}
	return r.Name
}

// FileInfo describes an entry visited by a walker
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	// Regular is false for directories, symlinks and other special entries.
	Regular bool
}

// Mapper turns a Resource into an application value. Returning false drops
// the record. A mapper may run more than once for the same logical file when
// overlapping roots expose it.
type Mapper[R any] func(Resource) (R, bool)

// Identity keeps every resource as is.
func Identity(r Resource) (Resource, bool) {
	return r, true
}

// Names maps each resource to its Name.
func Names(r Resource) (string, bool) {
	return r.Name, true
}

// ClassName maps compiled class resources (".class") to dotted type names
// and drops everything else.
func ClassName(r Resource) (string, bool) {
	name, ok := strings.CutSuffix(r.Name, ".class")
	if !ok || name == "" {
		return "", false
	}
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.ReplaceAll(name, "/", "."), true
}
