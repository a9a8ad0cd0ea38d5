// SPDX-License-Identifier: MPL-2.0

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytefuse/webexport/internal/config"
	"github.com/bytefuse/webexport/internal/container"
	"github.com/bytefuse/webexport/internal/issue"
	"github.com/bytefuse/webexport/internal/testutil"
)

func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	root := t.TempDir()
	s := config.DefaultSettings(filepath.Join(root, "pub"))
	s.BuildFile = filepath.Join(s.ContextDir, config.DockerfileName)
	return s
}

func newMockEngine(t *testing.T, recorder *testutil.MockCommandRecorder) container.Engine {
	t.Helper()
	engine, err := container.NewEngine(container.EngineTypeDocker,
		container.WithBinaryPath("/usr/bin/docker"),
		container.WithExecCommand(recorder.ContextCommandFunc(t)))
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

func TestRun_Success(t *testing.T) {
	s := testSettings(t)
	recorder := testutil.NewMockCommandRecorder()
	var stdout, stderr bytes.Buffer

	code, err := Run(context.Background(), Request{
		Settings: s,
		Engine:   newMockEngine(t, recorder),
		Stdout:   &stdout,
		Stderr:   &stderr,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	if info, err := os.Stat(s.DestDir); err != nil || !info.IsDir() {
		t.Errorf("destination %q was not created: %v", s.DestDir, err)
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "Running: docker buildx build") {
		t.Errorf("stdout should start with the command line, got %q", out)
	}
	if !strings.Contains(out, "Done. Files exported to: "+s.DestDir) {
		t.Errorf("stdout missing confirmation naming dest, got %q", out)
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}

	recorder.AssertInvocationCount(t, 1)
	for _, pair := range [][2]string{
		{"-f", s.BuildFile},
		{"--target", "export"},
		{"--build-arg", "VITE_BASE_URL=/api"},
		{"--output", "type=local,dest=" + s.DestDir},
	} {
		if !recorder.HasArgPair(pair[0], pair[1]) {
			t.Errorf("missing %s %s in %v", pair[0], pair[1], recorder.LastArgs())
		}
	}
	if args := recorder.LastArgs(); args[len(args)-1] != s.ContextDir {
		t.Errorf("last arg = %q, want context %q", args[len(args)-1], s.ContextDir)
	}
}

func TestRun_ExitCodePassthrough(t *testing.T) {
	for _, want := range []int{1, 2, 42} {
		s := testSettings(t)
		recorder := testutil.NewMockCommandRecorder()
		recorder.ExitCode = want
		var stdout, stderr bytes.Buffer

		code, err := Run(context.Background(), Request{
			Settings: s,
			Engine:   newMockEngine(t, recorder),
			Stdout:   &stdout,
			Stderr:   &stderr,
		})
		if err != nil {
			t.Fatalf("exit %d: Run() error: %v", want, err)
		}
		if code != want {
			t.Errorf("exit code = %d, want %d", code, want)
		}
		if msg := stderr.String(); !strings.Contains(msg, fmt.Sprintf("Build failed with exit code %d", want)) {
			t.Errorf("stderr = %q, want failure message with code %d", msg, want)
		}
		if strings.Contains(stdout.String(), "Done.") {
			t.Errorf("stdout should not confirm a failed build, got %q", stdout.String())
		}
	}
}

func TestRun_MissingBuildFileHint(t *testing.T) {
	tests := []struct {
		name         string
		writeFile    bool
		exitCode     int
		verbose      bool
		wantHint     bool
		wantGuidance bool
	}{
		{name: "build file present", writeFile: true, exitCode: 1},
		{name: "missing, build succeeded", exitCode: 0},
		{name: "missing, build failed", exitCode: 1, wantHint: true},
		{name: "missing, build failed, verbose", exitCode: 1, verbose: true, wantHint: true, wantGuidance: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(t)
			if tt.writeFile {
				testutil.MustWriteFile(t, s.BuildFile, "FROM scratch AS export\n")
			}
			recorder := testutil.NewMockCommandRecorder()
			recorder.ExitCode = tt.exitCode
			var stderr bytes.Buffer

			code, err := Run(context.Background(), Request{
				Settings: s,
				Engine:   newMockEngine(t, recorder),
				Stderr:   &stderr,
				Verbose:  tt.verbose,
			})
			if err != nil || code != tt.exitCode {
				t.Fatalf("Run() = %d, %v; want %d", code, err, tt.exitCode)
			}

			out := stderr.String()
			if got := strings.Contains(out, "Build file not found: "+s.BuildFile); got != tt.wantHint {
				t.Errorf("hint present = %v, want %v; stderr:\n%s", got, tt.wantHint, out)
			}
			if got := strings.Contains(out, "buildx/build/#file"); got != tt.wantGuidance {
				t.Errorf("catalog guidance present = %v, want %v; stderr:\n%s", got, tt.wantGuidance, out)
			}
		})
	}
}

func TestRun_DestAlreadyExists(t *testing.T) {
	s := testSettings(t)
	testutil.MustMkdirAll(t, s.DestDir, 0o755)
	recorder := testutil.NewMockCommandRecorder()

	for range 2 {
		code, err := Run(context.Background(), Request{Settings: s, Engine: newMockEngine(t, recorder)})
		if err != nil || code != 0 {
			t.Fatalf("Run() = %d, %v", code, err)
		}
	}
	recorder.AssertInvocationCount(t, 2)
}

func TestRun_DestNotCreatable(t *testing.T) {
	s := testSettings(t)
	blocker := filepath.Join(filepath.Dir(s.DestDir), "file")
	testutil.MustWriteFile(t, blocker, "not a directory")
	s.DestDir = filepath.Join(blocker, "web")
	recorder := testutil.NewMockCommandRecorder()

	code, err := Run(context.Background(), Request{Settings: s, Engine: newMockEngine(t, recorder)})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.DestinationNotWritableId {
		t.Fatalf("expected DestinationNotWritable error, got %v", err)
	}
	recorder.AssertInvocationCount(t, 0)
}

func TestRun_EngineMissing(t *testing.T) {
	t.Parallel()
	s := testSettings(t)
	engine := container.NewBaseCLIEngine("webexport-no-such-engine-binary", container.WithName("docker"))
	var stdout bytes.Buffer

	code, err := Run(context.Background(), Request{Settings: s, Engine: engine, Stdout: &stdout})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Issue != issue.ContainerEngineNotFoundId {
		t.Fatalf("expected ContainerEngineNotFound error, got %v", err)
	}
	if !strings.Contains(stdout.String(), "Running: ") {
		t.Errorf("command should be printed before launching, got %q", stdout.String())
	}
}

func TestRun_NilSettings(t *testing.T) {
	t.Parallel()
	if code, err := Run(context.Background(), Request{}); code != 1 || !errors.Is(err, ErrNilSettings) {
		t.Errorf("Run() = %d, %v", code, err)
	}
}

func TestOptions_BuildArgOrder(t *testing.T) {
	t.Parallel()
	s := &config.Settings{BaseURL: "/b", OSSRegion: "r", OSSBucket: "k"}

	got := Options(s).BuildArgs
	want := []container.BuildArg{
		{Key: "VITE_BASE_URL", Value: "/b"},
		{Key: "VITE_OSS_REGION", Value: "r"},
		{Key: "VITE_OSS_BUCKET", Value: "k"},
	}
	if len(got) != len(want) {
		t.Fatalf("BuildArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BuildArgs[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCommandLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "plain words", args: []string{"buildx", "build"}, want: "docker buildx build"},
		{name: "space is quoted", args: []string{"/tmp/my context"}, want: "docker '/tmp/my context'"},
		{name: "empty is quoted", args: []string{""}, want: "docker ''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CommandLine("docker", tt.args); got != tt.want {
				t.Errorf("CommandLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "a", "b", "web")
	for range 2 {
		if err := EnsureDir(dir); err != nil {
			t.Fatalf("EnsureDir() error: %v", err)
		}
	}
}
