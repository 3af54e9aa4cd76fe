package cli

import (
	"fmt"

	"github.com/ralt/bulk/internal/engine"
	"github.com/ralt/bulk/internal/models"
	"github.com/ralt/bulk/internal/signer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type repoAddFlags struct {
	config          string
	repositoryBase  string
	skipExisting    bool
	replaceExisting bool
	gpgKey          string
	gpgPassphrase   string
	origin          string
	label           string
}

// NewRepoAddCmd creates the repo-add command
func NewRepoAddCmd() *cobra.Command {
	var flags repoAddFlags

	cmd := &cobra.Command{
		Use:   "repo-add [flags] packages...",
		Short: "Add packages to the repositories listed in the config",
		Long: `Reads metadata from every package (directories are scanned for
package files), then adds each package to every repository of the config
whose match-version/skip-version filters accept its version. Repositories
are only written once every package has been accepted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(args)
			if err != nil {
				return err
			}

			logrus.Debugf("repo-add options: %+v", opts)
			if err := engine.RepoAdd(cmd.Context(), opts); err != nil {
				return err
			}

			logrus.Infof("Added %d package argument(s) to %s", len(args), opts.RepositoryBase)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "bulk.yaml", "Package configuration file")
	cmd.Flags().StringVarP(&flags.repositoryBase, "repository-base", "D", ".", "Directory where repositories are stored")
	cmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "Skip package if it's already in the repository")
	cmd.Flags().BoolVar(&flags.replaceExisting, "replace-existing", false, "Replace package if it's already in the repository")
	cmd.MarkFlagsMutuallyExclusive("skip-existing", "replace-existing")

	cmd.Flags().StringVarP(&flags.gpgKey, "gpg-key", "k", "", "Path to GPG private key used to sign Release files")
	cmd.Flags().StringVarP(&flags.gpgPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")
	cmd.Flags().StringVar(&flags.origin, "origin", "", "Origin written to Debian Release files")
	cmd.Flags().StringVar(&flags.label, "label", "", "Label written to Debian Release files")

	return cmd
}

func (f *repoAddFlags) options(packages []string) (engine.Options, error) {
	opts := engine.Options{
		ConfigPath:     f.config,
		RepositoryBase: f.repositoryBase,
		Packages:       packages,
		OnConflict:     models.ConflictError,
	}
	switch {
	case f.skipExisting:
		opts.OnConflict = models.ConflictKeep
	case f.replaceExisting:
		opts.OnConflict = models.ConflictReplace
	}

	opts.Debian.Origin = f.origin
	opts.Debian.Label = f.label
	if opts.Debian.Label == "" {
		opts.Debian.Label = opts.Debian.Origin
	}

	if f.gpgKey != "" {
		gpgSigner, err := signer.NewGPGSigner(f.gpgKey, f.gpgPassphrase)
		if err != nil {
			return opts, models.NewError(models.ErrSigning, f.gpgKey,
				fmt.Errorf("failed to initialize GPG signer: %w", err))
		}
		opts.Debian.Signer = gpgSigner
		logrus.Info("GPG signer initialized")
	}

	return opts, nil
}
