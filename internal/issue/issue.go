// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry. The zero value means "no catalog entry".
type Id int

const (
	ContainerEngineNotFoundId Id = iota + 1
	DockerfileNotFoundId
	DestinationNotWritableId
	DistNotFoundId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the Markdown guidance for the terminal. stylePath is a
// glamour style name ("dark", "light", "notty") or a path to a style file.
func (i *Issue) Render(stylePath string) (string, error) {
	links := append(i.DocLinks(), i.ExtLinks()...)
	extraMd := ""
	if len(links) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range links {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.MarkdownMsg())+extraMd, stylePath)
}

var (
	render = glamour.Render

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

webexport runs the build through a container engine with BuildKit support,
but the engine binary could not be started.

## Things you can try:
- Install Docker (with the buildx plugin) or Podman
- Check that the binary is on your PATH:
~~~
$ docker buildx version
~~~

- Switch engines if only one is installed:
~~~
$ webexport --engine podman
~~~`,
		extLinks: []HttpLink{
			"https://docs.docker.com/build/install-buildx/",
			"https://podman.io/docs/installation",
		},
	}

	dockerfileNotFoundIssue = &Issue{
		id: DockerfileNotFoundId,
		mdMsg: `
# Dockerfile not found!

The build file passed to the container engine does not exist.

## Things you can try:
- Point to the build file explicitly:
~~~
$ webexport --dockerfile ./admin/Dockerfile
~~~

- Check that --context names the admin project directory; the default build
  file is <context>/Dockerfile`,
		extLinks: []HttpLink{
			"https://docs.docker.com/reference/cli/docker/buildx/build/#file",
		},
	}

	destinationNotWritableIssue = &Issue{
		id: DestinationNotWritableId,
		mdMsg: `
# Cannot create the destination directory!

The exported files are written to a local directory that webexport creates
before starting the build.

## Things you can try:
- Check permissions on the parent directory
- Choose another destination:
~~~
$ webexport --dest /tmp/web
~~~`,
	}

	distNotFoundIssue = &Issue{
		id: DistNotFoundId,
		mdMsg: `
# dist directory not found!

copy-dist copies an already built bundle. Build the admin project first.

## Things you can try:
~~~
$ npm run build
$ webexport copy-dist
~~~

- Or export through the container build instead:
~~~
$ webexport
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The config file or an env file could not be read or did not validate.

## Things you can try:
- Print the settings webexport would use:
~~~
$ webexport config show
~~~

- Generate a fresh config file:
~~~
$ webexport config init webexport.cue
~~~`,
	}

	issues = map[Id]*Issue{
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		dockerfileNotFoundIssue.Id():      dockerfileNotFoundIssue,
		destinationNotWritableIssue.Id():  destinationNotWritableIssue,
		distNotFoundIssue.Id():            distNotFoundIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
	}
)

// Values returns all catalog entries ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for id := ContainerEngineNotFoundId; id <= ConfigLoadFailedId; id++ {
		if i, ok := issues[id]; ok {
			out = append(out, i)
		}
	}
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
