// SPDX-License-Identifier: MPL-2.0

// Package export runs one web bundle export: it prepares the destination,
// assembles the engine invocation from resolved settings, runs it and maps
// the outcome to a process exit code.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"github.com/bytefuse/webexport/internal/config"
	"github.com/bytefuse/webexport/internal/container"
	"github.com/bytefuse/webexport/internal/issue"
)

// ErrNilSettings is returned when a Request has no settings.
var ErrNilSettings = errors.New("export request has no settings")

// Request describes one export run.
type Request struct {
	Settings *config.Settings
	Engine   container.Engine

	// Stdin, Stdout and Stderr are shared with the engine process. Contract
	// messages are written to Stdout and Stderr as well.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives diagnostics. nil discards them.
	Logger *log.Logger

	// Verbose adds catalog guidance to failure output.
	Verbose bool
}

// Run performs the export and returns the exit code for the process.
// A non-zero engine exit is returned as that code with a nil error; errors
// are reserved for failures that prevent the engine from running, and carry
// exit code 1.
func Run(ctx context.Context, req Request) (int, error) {
	if req.Settings == nil {
		return 1, ErrNilSettings
	}
	s := req.Settings
	logger := req.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	stdout := writerOrDiscard(req.Stdout)
	stderr := writerOrDiscard(req.Stderr)

	if err := EnsureDir(s.DestDir); err != nil {
		return 1, err
	}

	// The engine reports a missing build file itself; the hint is added only if it fails.
	_, buildFileErr := os.Stat(s.BuildFile)
	if buildFileErr != nil {
		logger.Debug("build file not accessible", "path", s.BuildFile, "err", buildFileErr)
	}

	opts := Options(s)
	opts.Stdin = req.Stdin
	opts.Stdout = req.Stdout
	opts.Stderr = req.Stderr

	fmt.Fprintf(stdout, "Running: %s\n", CommandLine(req.Engine.Name(), req.Engine.ExportArgs(opts)))
	logger.Debug("starting engine", "engine", req.Engine.Name(), "binary", req.Engine.BinaryPath())

	result, err := req.Engine.Export(ctx, opts)
	if err != nil {
		return 1, err
	}

	if result.ExitCode != 0 {
		fmt.Fprintf(stderr, "Build failed with exit code %d\n", result.ExitCode)
		if buildFileErr != nil {
			reportMissingBuildFile(stderr, s.BuildFile, req.Verbose)
		}
		return result.ExitCode, nil
	}

	fmt.Fprintf(stdout, "Done. Files exported to: %s\n", s.DestDir)
	return 0, nil
}

// Options converts settings into engine export options. Build args follow
// the order of config.BuildArgEnv.
func Options(s *config.Settings) container.ExportOptions {
	values := map[string]string{
		config.KeyBaseURL:   s.BaseURL,
		config.KeyOSSRegion: s.OSSRegion,
		config.KeyOSSBucket: s.OSSBucket,
	}
	args := make([]container.BuildArg, 0, len(config.BuildArgEnv))
	for _, b := range config.BuildArgEnv {
		args = append(args, container.BuildArg{Key: b.Env, Value: values[b.Key]})
	}

	return container.ExportOptions{
		ContextDir: container.HostFilesystemPath(s.ContextDir),
		Dockerfile: container.HostFilesystemPath(s.BuildFile),
		Target:     s.BuildTarget,
		BuildArgs:  args,
		Dest:       container.HostFilesystemPath(s.DestDir),
	}
}

// EnsureDir creates dir and its parents. An existing directory is not an error.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return issue.NewErrorContext().
			WithOperation("create destination directory").
			WithResource(dir).
			WithIssue(issue.DestinationNotWritableId).
			WithSuggestion("Check write permissions on the parent directory").
			WithSuggestion("Choose another destination with --dest").
			Wrap(err).
			BuildError()
	}
	return nil
}

// CommandLine renders name and args as a single shell-pasteable line.
func CommandLine(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, word := range append([]string{name}, args...) {
		parts = append(parts, quote(word))
	}
	return strings.Join(parts, " ")
}

func quote(word string) string {
	q, err := syntax.Quote(word, syntax.LangBash)
	if err != nil {
		return word
	}
	return q
}

// reportMissingBuildFile names the build file that could not be found and,
// in verbose mode, renders the catalog entry for it.
func reportMissingBuildFile(w io.Writer, path string, verbose bool) {
	fmt.Fprintf(w, "Build file not found: %s\n", path)
	if !verbose {
		return
	}
	if entry := issue.Get(issue.DockerfileNotFoundId); entry != nil {
		if rendered, err := entry.Render("dark"); err == nil {
			fmt.Fprint(w, rendered)
		}
	}
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
