// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bytefuse/webexport/internal/distcopy"
)

func newCopyDistCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var src string

	cmd := &cobra.Command{
		Use:   "copy-dist",
		Short: "Publish a locally built dist directory without running a build",
		Long: `Replace the export destination with a copy of a dist directory that was
already built on this machine (for example with "npm run build").

The destination is emptied first. --dest selects it the same way as for an
export; --src defaults to the dist directory inside the build context.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			settings, err := app.loadSettings(cmd, flags)
			if err != nil {
				return app.fail(err, flags.verbose)
			}

			from := filepath.Join(settings.ContextDir, "dist")
			if src != "" {
				wd, err := app.workingDir()
				if err != nil {
					return app.fail(err, flags.verbose)
				}
				from = src
				if !filepath.IsAbs(from) {
					from = filepath.Join(wd, from)
				}
			}

			app.newLogger(flags.verbose).Debug("copying dist", "src", from, "dest", settings.DestDir)
			if err := distcopy.Copy(from, settings.DestDir); err != nil {
				return app.fail(err, flags.verbose)
			}

			fmt.Fprintf(app.stdout, "Done. Files copied to: %s\n", settings.DestDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "dist directory to copy (default <context>/dist)")
	return cmd
}
