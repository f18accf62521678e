// Package classpath finds resources below a dotted namespace across a search
// path of directories and archives, the way a JVM classpath lookup does.
//
// A scan translates the namespace into a path (io.github.app becomes
// io/github/app), asks a [SearchPathProvider] for every root exposing that
// path, walks each root and hands every regular file to a caller supplied
// [Mapper]. Directory roots and archive roots (JAR/ZIP) produce the same
// resource names for the same layout.
//
// # Basic Usage
//
//	import (
//	    "github.com/gobeaver/classpath"
//	    _ "github.com/gobeaver/classpath/driver/zip" // .jar and .zip support
//	)
//
//	scanner := classpath.NewWithEntries([]string{"build/classes", "lib/app.jar"})
//
//	ctx := context.Background()
//
//	// Every class below io.github.app as a dotted type name
//	types, err := classpath.Scan(ctx, scanner, "io.github.app", classpath.ClassName)
//
//	// Raw resources
//	resources, err := scanner.Resources(ctx, "io.github.app")
//
// # Resources
//
// A [Resource] carries a Name relative to its search path entry (always with
// forward slashes, never with a leading slash) and a Base identifying where it
// came from. Archive roots share one Base (jar:file:/lib/app.jar!) while
// directory roots use file: plus the file's own path. Content is available
// through [Scanner.Open], [ReadResource] and [Scanner.Checksum].
//
// Results are kept in visitation order, root by root. Overlapping roots are not
// de-duplicated: a file exposed by two entries is reported twice.
//
// # Selectors
//
// Selectors filter resources before mapping:
//
//	sel := classpath.And(classpath.MustGlob("**/*.class"), classpath.Depth(1, "io.github.app"))
//	types, err := classpath.Scan(ctx, scanner, "io.github.app", classpath.Filter(sel, classpath.ClassName))
//
// # Error Handling
//
// Any failure aborts the scan and no partial result is returned. Errors are
// [*ScanError] values whose kind can be tested with errors.Is:
//
//	_, err := scanner.Resources(ctx, "io.github.app")
//	if errors.Is(err, classpath.ErrTraversal) {
//	    // a root could not be read
//	}
//
// # Configuration
//
// A scanner can be configured from BEAVER_CLASSPATH_* environment variables
// and an optional YAML file, see [Config] and [NewFromEnv].
package classpath
