// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	EngineTypeDocker EngineType = "docker"
	EngineTypePodman EngineType = "podman"
)

var (
	// ErrUnknownEngineType is the sentinel error wrapped by UnknownEngineTypeError.
	ErrUnknownEngineType = errors.New("unknown container engine type")

	// ErrInvalidExportOptions is the sentinel error wrapped by InvalidExportOptionsError.
	ErrInvalidExportOptions = errors.New("invalid export options")
)

type (
	// Engine defines the interface for BuildKit export operations.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// BinaryPath returns the resolved engine binary, or the bare name when
		// it could not be found on PATH.
		BinaryPath() string
		// ExportArgs returns the argument list for Export without running it.
		ExportArgs(opts ExportOptions) []string
		// Export runs the build and writes its output to opts.Dest.
		Export(ctx context.Context, opts ExportOptions) (*ExportResult, error)
	}

	// EngineType identifies the container engine type.
	EngineType string

	// UnknownEngineTypeError is returned by NewEngine for unrecognized engine types.
	UnknownEngineTypeError struct {
		Value EngineType
	}

	// BuildArg is a single --build-arg KEY=VALUE pair. Build args are kept in a
	// slice so the generated command line is deterministic.
	BuildArg struct {
		Key   string
		Value string
	}

	// ExportOptions contains options for an export build.
	ExportOptions struct {
		// ContextDir is the build context directory (last positional argument).
		ContextDir HostFilesystemPath
		// Dockerfile is the path passed to -f.
		Dockerfile HostFilesystemPath
		// Target is the build stage passed to --target.
		Target string
		// BuildArgs are passed as --build-arg in order.
		BuildArgs []BuildArg
		// Dest is the local directory named in the output directive.
		Dest HostFilesystemPath
		// Stdin, Stdout and Stderr are attached to the engine process.
		// nil means the null device, as with exec.Cmd.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// InvalidExportOptionsError is returned when ExportOptions has invalid fields.
	InvalidExportOptionsError struct {
		FieldErrs []error
	}

	// ExportResult contains the outcome of an export.
	ExportResult struct {
		// ExitCode is the engine's exit code. Termination by signal N is
		// reported as 128+N, the shell convention.
		ExitCode int
	}
)

// String returns the engine type name.
func (t EngineType) String() string { return string(t) }

// Validate returns an error if the EngineType is not docker or podman.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypePodman:
		return nil
	default:
		return &UnknownEngineTypeError{Value: t}
	}
}

// Error implements the error interface.
func (e *UnknownEngineTypeError) Error() string {
	return fmt.Sprintf("unknown container engine type %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrUnknownEngineType for errors.Is() compatibility.
func (e *UnknownEngineTypeError) Unwrap() error { return ErrUnknownEngineType }

// String returns the pair in KEY=VALUE form.
func (a BuildArg) String() string {
	return a.Key + "=" + a.Value
}

// Validate returns an error if the key is empty or contains '='.
func (a BuildArg) Validate() error {
	if a.Key == "" || strings.Contains(a.Key, "=") {
		return fmt.Errorf("invalid build arg key %q", a.Key)
	}
	return nil
}

// Validate returns an error if any field of the ExportOptions is invalid.
func (o ExportOptions) Validate() error {
	var errs []error
	if err := o.ContextDir.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("context: %w", err))
	}
	if err := o.Dockerfile.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("dockerfile: %w", err))
	}
	if err := o.Dest.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("dest: %w", err))
	}
	if strings.TrimSpace(o.Target) == "" {
		errs = append(errs, errors.New("target: must be non-empty"))
	}
	for _, a := range o.BuildArgs {
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &InvalidExportOptionsError{FieldErrs: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidExportOptionsError) Error() string {
	return fmt.Sprintf("invalid export options: %v", errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidExportOptions for errors.Is() compatibility.
func (e *InvalidExportOptionsError) Unwrap() error { return ErrInvalidExportOptions }

// NewEngine creates the engine for engineType. The engine binary is not
// probed: a missing binary surfaces when Export tries to start it, so a run
// launches exactly one external process.
func NewEngine(engineType EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	if err := engineType.Validate(); err != nil {
		return nil, err
	}
	if engineType == EngineTypePodman {
		return NewPodmanEngine(opts...), nil
	}
	return NewDockerEngine(opts...), nil
}
