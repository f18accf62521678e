package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gobeaver/classpath"
	_ "github.com/gobeaver/classpath/driver/zip"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	path       string
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "classpath",
		Short: "Find resources below a namespace on a search path",
		Long: `classpath walks every directory and archive of a search path that
exposes a dotted namespace and lists the files found below it.

The search path comes from --path, BEAVER_CLASSPATH_SEARCH_PATH or the
search_path key of a YAML config file, in that order.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.path, "path", "p", "", "search path entries separated by the OS list separator")
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every root and resource")

	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newRootsCmd(opts))
	return cmd
}

// scanner builds a scanner from environment, config file and flags. Flags
// win over the environment, which wins over the file.
func (o *rootOptions) scanner(cmd *cobra.Command) (*classpath.Scanner, error) {
	cfg, err := classpath.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.configFile != "" {
		if err := cfg.MergeFile(o.configFile); err != nil {
			return nil, err
		}
	}
	if o.path != "" {
		cfg.SearchPath = o.path
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "classpath",
		Level:  level,
	})

	if len(cfg.Entries()) == 0 {
		logger.Warn("search path is empty")
	}
	return classpath.NewFromConfig(cfg, classpath.WithLogger(logger))
}

func newScanCmd(root *rootOptions) *cobra.Command {
	var (
		pattern  string
		classes  bool
		checksum string
	)

	cmd := &cobra.Command{
		Use:   "scan <namespace>",
		Short: "List the resources below a namespace",
		Example: `  classpath scan io.github.app --path build/classes
  classpath scan io.github.app --classes
  classpath scan io.github.app --glob '**.properties' --checksum sha256`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := classpath.All()
			if pattern != "" {
				g, err := classpath.Glob(pattern)
				if err != nil {
					return fmt.Errorf("invalid --glob pattern: %w", err)
				}
				sel = g
			}
			if checksum != "" {
				if _, err := classpath.NewHasher(classpath.ChecksumAlgorithm(checksum)); err != nil {
					return err
				}
			}

			s, err := root.scanner(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			resources, err := classpath.Scan(ctx, s, args[0], classpath.Filter(sel, classpath.Identity))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range resources {
				line := r.Name
				if classes {
					name, ok := classpath.ClassName(r)
					if !ok {
						continue
					}
					line = name
				}
				if checksum != "" {
					sum, err := s.Checksum(ctx, r, classpath.ChecksumAlgorithm(checksum))
					if err != nil {
						return err
					}
					line = sum + "  " + line
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pattern, "glob", "g", "", "only list resources whose name matches the glob")
	cmd.Flags().BoolVarP(&classes, "classes", "c", false, "print .class resources as dotted type names")
	cmd.Flags().StringVar(&checksum, "checksum", "", "prefix each resource with its checksum (md5, sha1, sha256, sha512, crc32, xxhash)")
	return cmd
}

func newRootsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "roots <namespace>",
		Short: "List the directories and archives exposing a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.scanner(cmd)
			if err != nil {
				return err
			}

			roots, err := s.Roots(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, loc := range roots {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", loc.Kind, loc.Raw)
			}
			return nil
		},
	}
}
