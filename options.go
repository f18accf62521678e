package classpath

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Option configures a Scanner or a SearchPath
type Option func(*options)

type options struct {
	// fs backs directory roots and archive files
	fs afero.Fs

	// archives opens archive roots; defaults to the driver registry over fs
	archives ArchiveProvider

	// archiveExtensions restricts which search path files are treated as
	// archives. Empty means every registered extension.
	archiveExtensions []string

	logger *log.Logger
}

// WithFS sets the filesystem used for directory roots and archive files.
func WithFS(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithArchiveProvider overrides how archive roots are opened.
func WithArchiveProvider(p ArchiveProvider) Option {
	return func(o *options) {
		o.archives = p
	}
}

// WithArchiveExtensions limits archive detection on a search path to the
// given extensions (".jar", "zip", ...).
func WithArchiveExtensions(exts ...string) Option {
	return func(o *options) {
		o.archiveExtensions = append(o.archiveExtensions, exts...)
	}
}

// WithLogger sets the logger. Scans log at debug level only.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewLogger returns the default logger used when WithLogger is not given.
func NewLogger(level log.Level) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "classpath",
		Level:  level,
	})
}

func processOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.archives == nil {
		o.archives = DefaultArchiveProvider(o.fs)
	}
	if o.logger == nil {
		o.logger = NewLogger(log.WarnLevel)
	}
	return o
}
