// SPDX-License-Identifier: MPL-2.0

package container

import "os/exec"

// DockerEngine implements the Engine interface using the Docker CLI with the
// buildx plugin. It embeds BaseCLIEngine for common CLI operations.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine creates a new Docker engine.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine(lookPath(EngineTypeDocker), prependName(EngineTypeDocker, opts)...),
	}
}

// lookPath resolves the engine binary. When it is not on PATH the bare name is
// kept, so the start failure names the missing binary.
func lookPath(t EngineType) string {
	if path, err := exec.LookPath(string(t)); err == nil {
		return path
	}
	return string(t)
}

func prependName(t EngineType, opts []BaseCLIEngineOption) []BaseCLIEngineOption {
	return append([]BaseCLIEngineOption{WithName(string(t))}, opts...)
}
