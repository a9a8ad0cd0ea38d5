// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bytefuse/webexport/internal/config"
	"github.com/bytefuse/webexport/internal/container"
	"github.com/bytefuse/webexport/internal/export"
	"github.com/bytefuse/webexport/internal/issue"
)

type (
	// App holds the streams and overrides shared by all commands.
	App struct {
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
		execCommand container.ExecCommandFunc
		baseDir     string
		workDir     string
	}

	// Dependencies defines the injection points for building an App. Zero
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
		// ExecCommand replaces exec.CommandContext for the engine process.
		ExecCommand container.ExecCommandFunc
		// BaseDir replaces the executable's directory for path defaults.
		BaseDir string
		// WorkDir replaces the process working directory.
		WorkDir string
	}

	// rootFlagValues holds the persistent flags that are not settings.
	rootFlagValues struct {
		verbose    bool
		configPath string
		envFiles   []string
		watch      bool
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		stdin:       deps.Stdin,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		execCommand: deps.ExecCommand,
		baseDir:     deps.BaseDir,
		workDir:     deps.WorkDir,
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

func (a *App) newLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// loadSettings resolves settings from the flags parsed into cmd.
func (a *App) loadSettings(cmd *cobra.Command, flags *rootFlagValues) (*config.Settings, error) {
	return config.Load(cmd.Context(), config.LoadOptions{
		Flags:          cmd.Flags(),
		ConfigFilePath: flags.configPath,
		EnvFiles:       flags.envFiles,
		BaseDir:        a.baseDir,
		WorkDir:        a.workDir,
	})
}

func (a *App) newEngine(s *config.Settings) (container.Engine, error) {
	var opts []container.BaseCLIEngineOption
	if a.execCommand != nil {
		opts = append(opts, container.WithExecCommand(a.execCommand))
	}
	return container.NewEngine(container.EngineType(s.ContainerEngine), opts...)
}

func (a *App) exportRequest(s *config.Settings, engine container.Engine, logger *log.Logger, verbose bool) export.Request {
	return export.Request{
		Settings: s,
		Engine:   engine,
		Stdin:    a.stdin,
		Stdout:   a.stdout,
		Stderr:   a.stderr,
		Logger:   logger,
		Verbose:  verbose,
	}
}

// workingDir returns the injected working directory or the process one.
func (a *App) workingDir() (string, error) {
	if a.workDir != "" {
		return a.workDir, nil
	}
	return os.Getwd()
}

// fail renders err and converts it to an exit code 1 ExitError.
func (a *App) fail(err error, verbose bool) error {
	a.renderError(err, verbose)
	return &ExitError{Code: 1, Err: err}
}

// renderError prints err to stderr. In verbose mode the catalog entry linked
// from an ActionableError is rendered below it.
func (a *App) renderError(err error, verbose bool) {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error:")+" "+formatErrorForDisplay(err, verbose))

	var ae *issue.ActionableError
	if !verbose || !errors.As(err, &ae) || ae.Issue == 0 {
		return
	}
	if entry := issue.Get(ae.Issue); entry != nil {
		if rendered, renderErr := entry.Render("dark"); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors include their suggestions, and the cause chain when verbose.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
