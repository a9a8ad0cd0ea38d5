// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/bytefuse/webexport/internal/config"
	"github.com/bytefuse/webexport/internal/export"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Build the admin web bundle with docker buildx and export it",
		Long: TitleStyle.Render(config.AppName) + SubtitleStyle.Render(" - export the admin web bundle through a BuildKit build") + `

Runs "docker buildx build" against the admin build context with the
VITE_BASE_URL, VITE_OSS_REGION and VITE_OSS_BUCKET build args, and writes
the files produced by the export stage to a local directory.

` + SubtitleStyle.Render("Settings, highest priority first:") + `
  flags > VITE_* environment > --env-file > --config file > defaults

` + SubtitleStyle.Render("Examples:") + `
  webexport                                  Export with defaults
  webexport --base-url https://api.example.com/v1
  webexport --engine podman --dest ./out     Use podman, export to ./out
  webexport --watch                          Re-export on source changes
  webexport copy-dist                        Publish a local dist build
  webexport config show --format toml        Show resolved settings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, app, flags)
		},
	}
	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.configPath, "config", "", "CUE config file")
	pf.StringArrayVar(&flags.envFiles, "env-file", nil, "dotenv file with VITE_* values (repeatable, suffix '?' if optional)")
	config.RegisterFlags(pf)

	rootCmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "re-export when files in the build context change")

	rootCmd.AddCommand(newCopyDistCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the command line and exits the process with its exit code.
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// errorHandler leaves ExitErrors alone; their message was printed where
// they were raised, or the engine already reported the failure.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// runExport performs a single export, or keeps exporting on changes with --watch.
func runExport(cmd *cobra.Command, app *App, flags *rootFlagValues) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	logger := app.newLogger(flags.verbose)

	settings, err := app.loadSettings(cmd, flags)
	if err != nil {
		return app.fail(err, flags.verbose)
	}
	logger.Debug("resolved settings",
		"context", settings.ContextDir,
		"dockerfile", settings.BuildFile,
		"dest", settings.DestDir,
		"target", settings.BuildTarget,
		"engine", settings.ContainerEngine)

	engine, err := app.newEngine(settings)
	if err != nil {
		return app.fail(err, flags.verbose)
	}

	if flags.watch {
		return runWatchMode(cmd, app, flags, settings, engine, logger)
	}

	// The engine gets interrupts from the terminal; its lifetime is not tied to ctx.
	code, err := export.Run(context.WithoutCancel(cmd.Context()), app.exportRequest(settings, engine, logger, flags.verbose))
	if err != nil {
		return app.fail(err, flags.verbose)
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
