package classpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gobeaver/beaver-kit/config"
	"gopkg.in/yaml.v3"
)

// Config describes a scanner. Environment variables carry the beaver-kit
// prefix (BEAVER_ by default).
type Config struct {
	// Search path entries separated by the OS list separator, like CLASSPATH
	SearchPath string `env:"CLASSPATH_SEARCH_PATH"`

	// Archive extensions recognized on the search path, comma-separated.
	// Empty means every registered archive driver.
	ArchiveExtensions string `env:"CLASSPATH_ARCHIVE_EXTENSIONS"`

	// debug, info, warn or error. Defaults to warn.
	LogLevel string `env:"CLASSPATH_LOG_LEVEL"`

	// Optional YAML file merged under the environment values
	ConfigFile string `env:"CLASSPATH_CONFIG_FILE"`
}

// FileConfig is the YAML layout of a config file
type FileConfig struct {
	SearchPath        []string `yaml:"search_path"`
	ArchiveExtensions []string `yaml:"archive_extensions"`
	LogLevel          string   `yaml:"log_level"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	return loadConfig()
}

// Builder loads configuration under a custom environment prefix
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Config loads the configuration using the builder's prefix
func (b *Builder) Config() (*Config, error) {
	return loadConfig(config.LoadOptions{Prefix: b.prefix})
}

// New creates a scanner using the builder's prefix
func (b *Builder) New(opts ...Option) (*Scanner, error) {
	cfg, err := b.Config()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

func loadConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.ConfigFile != "" {
		if err := cfg.MergeFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// MergeFile fills fields that are still empty from a YAML config file.
// Relative search path entries are resolved against the file's directory.
func (c *Config) MergeFile(path string) error {
	fc, err := LoadFile(path)
	if err != nil {
		return err
	}

	if c.SearchPath == "" && len(fc.SearchPath) > 0 {
		dir := filepath.Dir(path)
		entries := make([]string, 0, len(fc.SearchPath))
		for _, entry := range fc.SearchPath {
			if !filepath.IsAbs(entry) {
				entry = filepath.Join(dir, entry)
			}
			entries = append(entries, entry)
		}
		c.SearchPath = strings.Join(entries, string(os.PathListSeparator))
	}
	if c.ArchiveExtensions == "" && len(fc.ArchiveExtensions) > 0 {
		c.ArchiveExtensions = strings.Join(fc.ArchiveExtensions, ",")
	}
	if c.LogLevel == "" {
		c.LogLevel = fc.LogLevel
	}
	return nil
}

// Entries returns the search path entries in order.
func (c *Config) Entries() []string {
	var entries []string
	for _, entry := range filepath.SplitList(c.SearchPath) {
		if entry = strings.TrimSpace(entry); entry != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Extensions returns the configured archive extensions.
func (c *Config) Extensions() []string {
	var exts []string
	for _, ext := range strings.Split(c.ArchiveExtensions, ",") {
		if ext = normalizeExt(ext); ext != "" {
			exts = append(exts, ext)
		}
	}
	return exts
}

// Level returns the configured log level.
func (c *Config) Level() (log.Level, error) {
	if c.LogLevel == "" {
		return log.WarnLevel, nil
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// NewFromConfig creates a scanner over the configured search path. Options
// given here take precedence over the config.
func NewFromConfig(cfg *Config, opts ...Option) (*Scanner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	base := []Option{WithLogger(NewLogger(level))}
	if exts := cfg.Extensions(); len(exts) > 0 {
		base = append(base, WithArchiveExtensions(exts...))
	}

	return NewWithEntries(cfg.Entries(), append(base, opts...)...), nil
}

// NewFromEnv creates a scanner from environment variables
func NewFromEnv(opts ...Option) (*Scanner, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}
