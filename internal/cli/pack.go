package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ralt/bulk/internal/config"
	"github.com/ralt/bulk/internal/debpack"
	"github.com/ralt/bulk/internal/models"
	"github.com/spf13/cobra"
)

// NewPackCmd creates the pack command
func NewPackCmd() *cobra.Command {
	var (
		configPath string
		opts       debpack.Options
	)

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build a reproducible .deb from a directory tree",
		Long: `Packs every file, directory and symlink under --dir into a .deb
described by the metadata section of the config. All archive entries use
the same modification time, so identical trees give identical packages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ParseFile(configPath)
			if err != nil {
				return models.NewError(models.ErrConfigParse, configPath,
					fmt.Errorf("can't parse config %s: %w", configPath, err))
			}
			if cfg.Metadata == nil {
				return models.NewError(models.ErrMissingField, configPath,
					fmt.Errorf("%w: metadata section is required to pack", config.ErrMissingField))
			}
			opts.Metadata = cfg.Metadata

			if !cmd.Flags().Changed("mtime") {
				opts.Mtime, err = sourceDateEpoch()
				if err != nil {
					return err
				}
			}

			_, err = debpack.Build(opts)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bulk.yaml", "Package configuration file")
	cmd.Flags().StringVar(&opts.SourceDir, "dir", "", "Directory tree to pack")
	cmd.Flags().StringVar(&opts.DestDir, "dest-dir", ".", "Directory the package is written to")
	cmd.Flags().StringVar(&opts.Version, "package-version", "", "Version of the package")
	cmd.Flags().Int64Var(&opts.Mtime, "mtime", 0, "Modification time of every entry (default $SOURCE_DATE_EPOCH or 0)")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("package-version")

	return cmd
}

// sourceDateEpoch reads the reproducible-builds timestamp
func sourceDateEpoch() (int64, error) {
	value := os.Getenv("SOURCE_DATE_EPOCH")
	if value == "" {
		return 0, nil
	}
	mtime, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", value, err)
	}
	return mtime, nil
}
