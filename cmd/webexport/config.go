// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bytefuse/webexport/internal/config"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

// ErrUnknownFormat is returned by "config show" for unsupported --format values.
var ErrUnknownFormat = errors.New("unknown output format")

// newConfigCommand creates the `webexport config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create webexport configuration",
		Long: `Inspect and create webexport configuration.

A config file is a CUE document passed with --config. Every field is optional:

  base_url, oss_region, oss_bucket      build args
  context, dockerfile, dest             paths, relative to the config file
  target                                build stage
  container_engine                      "docker" or "podman"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return showConfig(cmd, app, flags, format)
		},
	}
	showCmd.Flags().StringVar(&format, "format", formatCUE, "output format: cue or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the resolved settings to a new config file",
		Long: `Write the resolved settings to a new CUE config file.

The file defaults to ` + config.DefaultConfigFileName + ` in the current directory.
An existing file is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			path := config.DefaultConfigFileName
			if len(args) == 1 {
				path = args[0]
			}
			return initConfig(cmd, app, flags, path)
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, flags *rootFlagValues, format string) error {
	settings, err := app.loadSettings(cmd, flags)
	if err != nil {
		return app.fail(err, flags.verbose)
	}

	switch format {
	case formatCUE:
		fmt.Fprint(app.stdout, config.GenerateCUE(settings))
	case formatTOML:
		out, err := config.GenerateTOML(settings)
		if err != nil {
			return app.fail(err, flags.verbose)
		}
		fmt.Fprint(app.stdout, out)
	default:
		return app.fail(fmt.Errorf("%w %q (valid: %s, %s)", ErrUnknownFormat, format, formatCUE, formatTOML), flags.verbose)
	}
	return nil
}

func initConfig(cmd *cobra.Command, app *App, flags *rootFlagValues, path string) error {
	settings, err := app.loadSettings(cmd, flags)
	if err != nil {
		return app.fail(err, flags.verbose)
	}

	if !filepath.IsAbs(path) {
		wd, err := app.workingDir()
		if err != nil {
			return app.fail(err, flags.verbose)
		}
		path = filepath.Join(wd, path)
	}

	if err := config.WriteConfigFile(path, settings); err != nil {
		return app.fail(err, flags.verbose)
	}
	fmt.Fprintf(app.stdout, "%s Created configuration at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
	return nil
}
