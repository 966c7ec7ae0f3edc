// ABOUTME: Tests for the config file watcher's reload debouncing.
// ABOUTME: Uses a real temp directory since fsnotify needs the filesystem.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewEventMarshal()
	go m.Run()
	t.Cleanup(m.Quit)

	reloaded := make(chan struct{}, 4)
	w := NewConfigWatcher(path, m, func() { reloaded <- struct{}{} })
	if err := w.Start(); err != nil {
		t.Fatalf("watcher start failed: %v", err)
	}
	t.Cleanup(w.Stop)

	if err := os.WriteFile(path, []byte(`{"mute":true}`), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("reload never fired")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewEventMarshal()
	go m.Run()
	t.Cleanup(m.Quit)

	reloaded := make(chan struct{}, 4)
	w := NewConfigWatcher(path, m, func() { reloaded <- struct{}{} })
	if err := w.Start(); err != nil {
		t.Fatalf("watcher start failed: %v", err)
	}
	t.Cleanup(w.Stop)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherStopCancelsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	m := NewEventMarshal()
	go m.Run()
	t.Cleanup(m.Quit)

	reloaded := make(chan struct{}, 4)
	w := NewConfigWatcher(path, m, func() { reloaded <- struct{}{} })
	if err := w.Start(); err != nil {
		t.Fatalf("watcher start failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"mute":true}`), 0600); err != nil {
		t.Fatal(err)
	}
	w.Stop() // before the debounce fires

	select {
	case <-reloaded:
		t.Fatal("stopped watcher still reloaded")
	case <-time.After(500 * time.Millisecond):
	}
}
