package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestPlugin_DebouncedChange(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = "info"`), 0644); err != nil {
		t.Fatalf("Failed to create config.toml: %v", err)
	}

	var calls atomic.Int32
	plugin := New(Config{DebounceDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := plugin.Initialize(ctx, path, func(string) { calls.Add(1) }, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer plugin.Shutdown(context.Background())

	// A burst of writes collapses into one call.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`log_level = "debug"`), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to create config.toml: %v", err)
	}

	var calls atomic.Int32
	plugin := New(Config{DebounceDelay: 10 * time.Millisecond})
	if err := plugin.Initialize(context.Background(), path, func(string) { calls.Add(1) }, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer plugin.Shutdown(context.Background())

	if err := os.WriteFile(filepath.Join(tmpDir, "other.toml"), []byte("x = 1"), 0644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("onChange called %d times for unrelated file, want 0", got)
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	plugin := New(DefaultConfig())
	err := plugin.Initialize(context.Background(), "/nonexistent/dir/config.toml", func(string) {}, nil)
	if err == nil {
		t.Fatal("Initialize() expected error for missing directory")
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() after failed Initialize = %v", err)
	}
}

func TestPlugin_Shutdown(t *testing.T) {
	tmpDir := t.TempDir()
	plugin := New(DefaultConfig())
	if err := plugin.Initialize(context.Background(), filepath.Join(tmpDir, "config.toml"), func(string) {}, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
	if plugin.Name() != "configwatcher" {
		t.Errorf("Name() = %q", plugin.Name())
	}
}
