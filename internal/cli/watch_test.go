package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldProcessEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"yaml write", fsnotify.Event{Name: "s/greet.yaml", Op: fsnotify.Write}, true},
		{"yml create", fsnotify.Event{Name: "s/greet.yml", Op: fsnotify.Create}, true},
		{"golden remove", fsnotify.Event{Name: "s/golden/greet.golden", Op: fsnotify.Remove}, true},
		{"upper case ext", fsnotify.Event{Name: "s/GREET.YAML", Op: fsnotify.Write}, true},
		{"chmod only", fsnotify.Event{Name: "s/greet.yaml", Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: "s/.greet.yaml", Op: fsnotify.Write}, false},
		{"editor swap", fsnotify.Event{Name: "s/greet.yaml.swp", Op: fsnotify.Write}, false},
		{"other file", fsnotify.Event{Name: "s/README.md", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldProcessEvent(tt.event))
		})
	}
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32

	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32

	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcher_FiresOnScenarioChange(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := NewWatcher(dir, 20*time.Millisecond, logger)
	require.NoError(t, err)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, func() { calls.Add(1) }) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.yaml"), []byte(greetScenario), 0644))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatcher_WatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := NewWatcher(dir, 20*time.Millisecond, logger)
	require.NoError(t, err)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx, func() { calls.Add(1) })

	sub := filepath.Join(dir, "market")
	require.NoError(t, os.Mkdir(sub, 0755))

	// The new directory is added asynchronously; keep writing until an
	// event from inside it is seen.
	require.Eventually(t, func() bool {
		os.WriteFile(filepath.Join(sub, "quote.yaml"), []byte(quoteScenario), 0644)
		return calls.Load() >= 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestNewWatcher_MissingDir(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), time.Millisecond, logger)
	assert.Error(t, err)
}
