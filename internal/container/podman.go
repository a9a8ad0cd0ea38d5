// SPDX-License-Identifier: MPL-2.0

package container

// PodmanEngine implements the Engine interface using the Podman CLI.
// "podman buildx build" is an alias of "podman build" and accepts the same
// -f, --target, --build-arg and --output flags, so no argument rewriting is needed.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(lookPath(EngineTypePodman), prependName(EngineTypePodman, opts)...),
	}
}
