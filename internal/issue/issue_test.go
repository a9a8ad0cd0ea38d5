// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	ids := []Id{
		ContainerEngineNotFoundId,
		DockerfileNotFoundId,
		DestinationNotWritableId,
		DistNotFoundId,
		ConfigLoadFailedId,
	}

	for _, id := range ids {
		got := Get(id)
		if got == nil {
			t.Fatalf("Get(%d) returned nil", id)
		}
		if got.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, got.Id())
		}
		if strings.TrimSpace(string(got.MarkdownMsg())) == "" {
			t.Errorf("issue %d has empty markdown", id)
		}
	}

	if Get(0) != nil {
		t.Error("Get(0) should return nil")
	}
}

func TestValues(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), len(issues))
	}
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Errorf("Values() not ordered by id at %d", i)
		}
	}
}

func TestIssue_ExtLinksAreCloned(t *testing.T) {
	i := Get(ContainerEngineNotFoundId)
	links := i.ExtLinks()
	if len(links) == 0 {
		t.Fatal("expected external links for the engine issue")
	}
	original := links[0]
	links[0] = "modified"
	if i.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	var gotStyle string
	render = func(in string, stylePath string) (string, error) {
		gotStyle = stylePath
		return in, nil
	}

	rendered, err := Get(ContainerEngineNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if gotStyle != "notty" {
		t.Errorf("style = %q, want notty", gotStyle)
	}
	if !strings.Contains(rendered, "Container engine not found") {
		t.Error("rendered output should contain the title")
	}
	if !strings.Contains(rendered, "See also") || !strings.Contains(rendered, "podman.io") {
		t.Error("rendered output should list external links")
	}

	rendered, err = Get(DistNotFoundId).Render("notty")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("issue without links should not render a See also section")
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	for _, i := range Values() {
		out, err := i.Render("notty")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", i.Id(), err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("issue %d rendered empty", i.Id())
		}
	}
}
