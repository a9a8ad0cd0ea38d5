// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/bytefuse/webexport/internal/issue"
)

// ErrInvalidHostFilesystemPath is the sentinel error wrapped by InvalidHostFilesystemPathError.
var ErrInvalidHostFilesystemPath = errors.New("invalid host filesystem path")

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the implementation shared by CLI-based engines.
	// Docker and Podman accept the same buildx arguments, so everything except
	// the binary lookup lives here.
	BaseCLIEngine struct {
		name        string // Engine name for messages (e.g., "docker", "podman")
		binaryPath  string
		execCommand ExecCommandFunc
	}

	// HostFilesystemPath represents a filesystem path on the host.
	// A valid path must be non-empty and not whitespace-only.
	HostFilesystemPath string

	// InvalidHostFilesystemPathError is returned when a HostFilesystemPath is empty or whitespace-only.
	InvalidHostFilesystemPathError struct {
		Value HostFilesystemPath
	}
)

// String returns the string representation of the HostFilesystemPath.
func (p HostFilesystemPath) String() string { return string(p) }

// Validate returns an error if the HostFilesystemPath is empty or whitespace-only.
func (p HostFilesystemPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &InvalidHostFilesystemPathError{Value: p}
	}
	return nil
}

// Error implements the error interface for InvalidHostFilesystemPathError.
func (e *InvalidHostFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid host filesystem path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidHostFilesystemPath for errors.Is() compatibility.
func (e *InvalidHostFilesystemPathError) Unwrap() error { return ErrInvalidHostFilesystemPath }

// WithName sets the engine name used in messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithBinaryPath overrides the binary found on PATH.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.binaryPath = path
	}
}

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name used in messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// ExportArgs constructs arguments for a BuildKit export.
//
// Generated command:
//
//	<binary> buildx build -f <dockerfile> --target <target>
//	  [--build-arg KEY=VALUE ...] --output type=local,dest=<dest> <context>
//
// The context is always the final positional argument.
func (e *BaseCLIEngine) ExportArgs(opts ExportOptions) []string {
	args := make([]string, 0, 9+2*len(opts.BuildArgs))
	args = append(args, "buildx", "build")
	args = append(args, "-f", string(opts.Dockerfile))
	args = append(args, "--target", opts.Target)

	for _, a := range opts.BuildArgs {
		args = append(args, "--build-arg", a.String())
	}

	args = append(args, "--output", OutputDirective(opts.Dest))
	args = append(args, string(opts.ContextDir))

	return args
}

// OutputDirective returns the buildx --output value that writes the build
// result to a local directory.
func OutputDirective(dest HostFilesystemPath) string {
	return "type=local,dest=" + string(dest)
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// Export runs the export build once and waits for it to finish.
// A non-zero engine exit is captured in ExportResult.ExitCode (not returned
// as error). Only failures to start the engine are returned as errors.
func (e *BaseCLIEngine) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cmd := e.CreateCommand(ctx, e.ExportArgs(opts)...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	err := cmd.Run()
	if err == nil {
		return &ExportResult{}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExportResult{ExitCode: exitCodeOf(exitErr)}, nil
	}

	return nil, engineStartError(e.name, e.binaryPath, err)
}

// exitCodeOf maps a process exit to a code suitable for os.Exit.
func exitCodeOf(exitErr *exec.ExitError) int {
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}

// engineStartError creates an actionable error for engines that could not be started.
func engineStartError(engine, binary string, cause error) error {
	return issue.NewErrorContext().
		WithOperation("start container engine").
		WithResource(binary).
		WithIssue(issue.ContainerEngineNotFoundId).
		WithSuggestion("Install " + engine + " and make sure it is on your PATH").
		WithSuggestion("Check that the buildx plugin is installed (try: " + engine + " buildx version)").
		WithSuggestion("Select another engine with --engine").
		Wrap(cause).
		BuildError()
}
