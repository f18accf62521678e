package zip

import (
	"github.com/spf13/afero"

	"github.com/gobeaver/classpath"
)

func init() {
	open := func(fsys afero.Fs, path string) (classpath.Archive, error) {
		a, err := OpenFS(fsys, path)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	classpath.RegisterArchiveDriver(".jar", open)
	classpath.RegisterArchiveDriver(".zip", open)
}
