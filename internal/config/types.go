// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContainerEngineDocker uses Docker with the buildx plugin.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses Podman; "podman buildx build" accepts the same flags.
	ContainerEnginePodman ContainerEngine = "podman"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidSettings is the sentinel error wrapped by InvalidSettingsError.
	ErrInvalidSettings = errors.New("invalid settings")
)

type (
	// ContainerEngine specifies which container engine runs the build.
	// Defined locally to avoid coupling config to internal/container;
	// the command layer converts at the boundary.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// Settings is the resolved configuration of a single export run.
	// It is built once by Load and not mutated afterwards.
	Settings struct {
		// BaseURL is passed to the build as VITE_BASE_URL.
		BaseURL string `mapstructure:"base_url" toml:"base_url"`
		// OSSRegion is passed to the build as VITE_OSS_REGION.
		OSSRegion string `mapstructure:"oss_region" toml:"oss_region"`
		// OSSBucket is passed to the build as VITE_OSS_BUCKET.
		OSSBucket string `mapstructure:"oss_bucket" toml:"oss_bucket"`
		// ContextDir is the build context directory.
		ContextDir string `mapstructure:"context" toml:"context"`
		// BuildFile is the Dockerfile; defaults to ContextDir/Dockerfile.
		BuildFile string `mapstructure:"dockerfile" toml:"dockerfile"`
		// DestDir receives the exported files.
		DestDir string `mapstructure:"dest" toml:"dest"`
		// BuildTarget is the multi-stage target that writes the bundle.
		BuildTarget string `mapstructure:"target" toml:"target"`
		// ContainerEngine selects the engine binary.
		ContainerEngine ContainerEngine `mapstructure:"container_engine" toml:"container_engine"`
	}

	// InvalidSettingsError is returned when resolved Settings fail validation.
	InvalidSettingsError struct {
		FieldErrors []error
	}
)

// Error implements the error interface for InvalidContainerEngineError.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error {
	return ErrInvalidContainerEngine
}

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// IsValid returns whether the ContainerEngine is one of the defined engine types,
// and a list of validation errors if it is not.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEngineDocker, ContainerEnginePodman:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: ce}}
	}
}

// IsValid returns whether the Settings can be used for an export,
// and a list of validation errors if not.
func (s Settings) IsValid() (bool, []error) {
	var errs []error
	if isValid, fieldErrs := s.ContainerEngine.IsValid(); !isValid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(s.BuildTarget) == "" {
		errs = append(errs, errors.New("target must not be empty"))
	}
	for _, p := range [...]struct{ key, value string }{
		{KeyContextDir, s.ContextDir},
		{KeyBuildFile, s.BuildFile},
		{KeyDestDir, s.DestDir},
	} {
		if strings.TrimSpace(p.value) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", p.key))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidSettingsError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSettingsError.
func (e *InvalidSettingsError) Error() string {
	return fmt.Sprintf("invalid settings: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidSettings followed by the field errors.
func (e *InvalidSettingsError) Unwrap() []error {
	return append([]error{ErrInvalidSettings}, e.FieldErrors...)
}
