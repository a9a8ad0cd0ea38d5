// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// startWatcher runs w in the background and returns a stop function that
// cancels it and reports the Run error.
func startWatcher(t *testing.T, w *Watcher) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	// Give the event loop time to start.
	time.Sleep(50 * time.Millisecond)
	return func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			return errors.New("Run did not return after cancel")
		}
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var (
		mu        sync.Mutex
		calls     int
		collected []string
	)
	done := make(chan struct{}, 1)

	w, err := New(Config{
		Dir:      dir,
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			collected = append(collected, changed...)
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	for _, name := range []string{"a.ts", "b.ts", "c.ts"} {
		writeFile(t, filepath.Join(dir, name))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	time.Sleep(250 * time.Millisecond)

	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected 1 debounced callback, got %d", calls)
	}
	for _, want := range []string{"a.ts", "b.ts", "c.ts"} {
		if !slices.Contains(collected, want) {
			t.Errorf("expected %q in changed files, got %v", want, collected)
		}
	}
}

func TestWatcherIgnoresBuildOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	dest := filepath.Join(dir, "web")
	for _, sub := range []string{"dist", "node_modules", "web", "src"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	fired := make(chan []string, 10)
	w, err := New(Config{
		Dir:      dir,
		Exclude:  []string{dest},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "dist", "index.html"))
	writeFile(t, filepath.Join(dir, "node_modules", "pkg.js"))
	writeFile(t, filepath.Join(dest, "index.html"))
	time.Sleep(200 * time.Millisecond)

	select {
	case changed := <-fired:
		t.Fatalf("ignored paths triggered a run: %v", changed)
	default:
	}

	writeFile(t, filepath.Join(dir, "src", "main.ts"))
	select {
	case changed := <-fired:
		if !slices.Equal(changed, []string{"src/main.ts"}) {
			t.Errorf("changed = %v, want [src/main.ts]", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestWatcherRunsDoNotOverlap(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var (
		active  atomic.Int32
		overlap atomic.Bool
		calls   atomic.Int32
	)
	firstStarted := make(chan struct{})
	secondDone := make(chan struct{})

	w, err := New(Config{
		Dir:      dir,
		Debounce: 30 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			defer active.Add(-1)

			switch calls.Add(1) {
			case 1:
				close(firstStarted)
				time.Sleep(300 * time.Millisecond)
			case 2:
				close(secondDone)
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "one.ts"))
	select {
	case <-firstStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not start")
	}

	// Changes during the first run are queued, not dropped.
	writeFile(t, filepath.Join(dir, "two.ts"))

	select {
	case <-secondDone:
	case <-time.After(5 * time.Second):
		t.Fatal("queued change never triggered a second run")
	}
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if overlap.Load() {
		t.Error("runs overlapped")
	}
}

func TestWatcherCallbackErrorKeepsWatching(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	calls := make(chan int, 10)
	var n atomic.Int32
	w, err := New(Config{
		Dir:      dir,
		Debounce: 30 * time.Millisecond,
		OnChange: func(_ context.Context, _ []string) error {
			calls <- int(n.Add(1))
			return errors.New("build failed with exit code 1")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	for i := range 2 {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.ts", i)))
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d did not happen", i+1)
		}
	}
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestWatcherNewSubdirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	fired := make(chan []string, 10)
	w, err := New(Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			fired <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)

	sub := filepath.Join(dir, "pages")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Let the directory creation run settle before writing inside it.
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("directory creation did not trigger a run")
	}

	writeFile(t, filepath.Join(sub, "home.vue"))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-fired:
			if slices.Contains(changed, "pages/home.vue") {
				if err := stop(); err != nil {
					t.Fatalf("Run() error: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("file in new subdirectory was not seen")
		}
	}
}

func TestWatcherDoubleRun(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	stop := startWatcher(t, w)
	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run() = %v, want ErrAlreadyStarted", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeFile(t, file)

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing directory", cfg: Config{Dir: filepath.Join(dir, "nope")}},
		{name: "not a directory", cfg: Config{Dir: file}},
		{name: "invalid ignore pattern", cfg: Config{Dir: dir, Ignore: []string{"[unclosed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestIsIgnored(t *testing.T) {
	t.Parallel()
	w := &Watcher{ignores: defaultIgnores}

	tests := []struct {
		rel  string
		want bool
	}{
		{".git/HEAD", true},
		{"node_modules/vue/index.js", true},
		{"dist/assets/app.js", true},
		{"packages/ui/dist/index.js", true},
		{"src/App.vue.swp", true},
		{"src/App.vue~", true},
		{".DS_Store", true},
		{"src/App.vue", false},
		{"Dockerfile", false},
		{"distribution.md", false},
	}
	for _, tt := range tests {
		if got := w.isIgnored(tt.rel); got != tt.want {
			t.Errorf("isIgnored(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
