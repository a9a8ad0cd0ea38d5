// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bytefuse/webexport/internal/config"
	"github.com/bytefuse/webexport/internal/container"
	"github.com/bytefuse/webexport/internal/export"
	"github.com/bytefuse/webexport/internal/watch"
)

// runWatchMode exports once, then re-exports whenever the build context
// changes until the command context is cancelled (Ctrl+C).
func runWatchMode(cmd *cobra.Command, app *App, flags *rootFlagValues, s *config.Settings, engine container.Engine, logger *log.Logger) error {
	req := app.exportRequest(s, engine, logger, flags.verbose)
	exportOnce := func() (int, error) {
		return export.Run(context.WithoutCancel(cmd.Context()), req)
	}

	// Setup errors such as a missing engine end watch mode; build failures do not.
	code, err := exportOnce()
	if err != nil {
		return app.fail(err, flags.verbose)
	}
	if code != 0 {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Initial export failed; watching for changes anyway."))
	}

	w, err := watch.New(watch.Config{
		Dir:     s.ContextDir,
		Exclude: []string{s.DestDir},
		Logger:  logger,
		OnChange: func(_ context.Context, changed []string) error {
			logger.Info("change detected, exporting again", "files", len(changed))
			code, err := exportOnce()
			if err != nil {
				return err
			}
			if code != 0 {
				return fmt.Errorf("build failed with exit code %d", code)
			}
			return nil
		},
	})
	if err != nil {
		return app.fail(err, flags.verbose)
	}

	fmt.Fprintf(app.stdout, "%s %s %s\n",
		SubtitleStyle.Render("Watching"),
		CmdStyle.Render(w.Dir()),
		SubtitleStyle.Render("for changes (Ctrl+C to stop)"))

	if err := w.Run(cmd.Context()); err != nil {
		return app.fail(err, flags.verbose)
	}
	return nil
}
