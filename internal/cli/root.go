package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Build reproducible packages and maintain static package repositories",
		Long: `Bulk packs directory trees into reproducible .deb files and adds
package files to static repositories described by a bulk.yaml file.

Supported repository kinds:
  - debian      (apt pool, Packages indexes and Release files)
  - html-links  (a plain XHTML page of links to package files)`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(NewRepoAddCmd())
	rootCmd.AddCommand(NewPackCmd())

	return rootCmd
}
