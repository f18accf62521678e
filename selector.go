package classpath

import (
	"strings"

	"github.com/gobwas/glob"
)

// ============================================================================
// Selector Interface
// ============================================================================

// Selector decides which scanned resources a mapper gets to see.
// Selectors compose with And, Or and Not and plug into a scan through Filter:
//
//	sel := classpath.And(
//	    classpath.MustGlob("io/github/**/*.class"),
//	    classpath.Not(classpath.Suffix("package-info.class")),
//	)
//	names, err := classpath.Scan(ctx, scanner, "io.github", classpath.Filter(sel, classpath.ClassName))
type Selector interface {
	// Match returns true if the resource should be kept.
	Match(r Resource) bool
}

// Filter wraps mapper so that resources rejected by sel are dropped before
// mapping.
func Filter[R any](sel Selector, mapper Mapper[R]) Mapper[R] {
	return func(r Resource) (R, bool) {
		if !sel.Match(r) {
			var zero R
			return zero, false
		}
		return mapper(r)
	}
}

// Select returns the resources matched by sel, keeping their order.
func Select(resources []Resource, sel Selector) []Resource {
	var out []Resource
	for _, r := range resources {
		if sel.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ============================================================================
// Built-in Selectors
// ============================================================================

type allSelector struct{}

func (allSelector) Match(Resource) bool { return true }

// All matches every resource.
func All() Selector {
	return allSelector{}
}

type globSelector struct {
	pattern string
	g       glob.Glob
}

// Glob creates a selector matching resource names against a glob pattern.
// "*" stays within one path segment, "**" crosses segments.
//
// Examples:
//
//	Glob("io/github/*.class")     // classes directly in io/github
//	Glob("**/*.properties")       // properties files at any depth
//	Glob("**/{Foo,Bar}.class")    // alternatives
func Glob(pattern string) (Selector, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	return &globSelector{pattern: pattern, g: g}, nil
}

// MustGlob is like Glob but panics on an invalid pattern.
func MustGlob(pattern string) Selector {
	sel, err := Glob(pattern)
	if err != nil {
		panic(err)
	}
	return sel
}

func (s *globSelector) Match(r Resource) bool {
	return s.g.Match(r.Name)
}

type suffixSelector struct {
	suffixes []string
}

// Suffix matches names ending with any of the given suffixes.
func Suffix(suffixes ...string) Selector {
	return &suffixSelector{suffixes: suffixes}
}

func (s *suffixSelector) Match(r Resource) bool {
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(r.Name, suffix) {
			return true
		}
	}
	return false
}

type depthSelector struct {
	maxDepth  int
	namespace string
}

// Depth limits matches to maxDepth levels below namespace.
// Depth 1 = files directly in the namespace.
func Depth(maxDepth int, namespace string) Selector {
	return &depthSelector{maxDepth: maxDepth, namespace: namespace}
}

func (s *depthSelector) Match(r Resource) bool {
	rel, ok := strings.CutPrefix(r.Name, NamespacePath(s.namespace)+"/")
	if !ok || rel == "" {
		return false
	}
	return strings.Count(rel, "/")+1 <= s.maxDepth
}

// ============================================================================
// Composable Selectors (And, Or, Not)
// ============================================================================

type andSelector struct {
	selectors []Selector
}

// And matches only if ALL selectors match.
func And(selectors ...Selector) Selector {
	return &andSelector{selectors: selectors}
}

func (s *andSelector) Match(r Resource) bool {
	for _, sel := range s.selectors {
		if !sel.Match(r) {
			return false
		}
	}
	return true
}

type orSelector struct {
	selectors []Selector
}

// Or matches if ANY selector matches.
func Or(selectors ...Selector) Selector {
	return &orSelector{selectors: selectors}
}

func (s *orSelector) Match(r Resource) bool {
	for _, sel := range s.selectors {
		if sel.Match(r) {
			return true
		}
	}
	return false
}

type notSelector struct {
	selector Selector
}

// Not inverts a selector's match result.
func Not(selector Selector) Selector {
	return &notSelector{selector: selector}
}

func (s *notSelector) Match(r Resource) bool {
	return !s.selector.Match(r)
}

// FuncSelector creates a selector from a custom function.
type FuncSelector func(r Resource) bool

func (f FuncSelector) Match(r Resource) bool { return f(r) }
