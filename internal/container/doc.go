// SPDX-License-Identifier: MPL-2.0

// Package container drives BuildKit exports through a container engine CLI (Docker/Podman).
//
// The Engine interface exposes the one operation webexport needs: Export, which runs
// "<engine> buildx build ... --output type=local,dest=<dir> <context>" and reports the
// engine's exit code. DockerEngine and PodmanEngine both embed BaseCLIEngine for the
// shared argument construction and command execution.
//
// A non-zero engine exit is a result, not an error: callers receive it in
// ExportResult.ExitCode so it can be passed through unchanged. Only failures to start
// the engine at all are returned as errors.
package container
