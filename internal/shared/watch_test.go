package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigWatcher(t *testing.T) {
	t.Run("Bad Path", func(t *testing.T) {
		if _, err := NewConfigWatcher("/nonexistent/dir/config.toml"); err == nil {
			t.Error("NewConfigWatcher should fail for nonexistent directory")
		}
	})

	t.Run("Detects Write", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(path, []byte("[device]\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		w, err := NewConfigWatcher(path)
		if err != nil {
			t.Fatalf("NewConfigWatcher: %v", err)
		}
		defer w.Close()

		time.Sleep(50 * time.Millisecond)

		if err := os.WriteFile(path, []byte("[device]\nport = 9000\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		select {
		case <-w.Changes():
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for change signal")
		}
	})

	t.Run("Ignores Other Files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		w, err := NewConfigWatcher(path)
		if err != nil {
			t.Fatalf("NewConfigWatcher: %v", err)
		}
		defer w.Close()

		time.Sleep(50 * time.Millisecond)

		if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		select {
		case <-w.Changes():
			t.Error("unexpected change signal for unrelated file")
		case <-time.After(300 * time.Millisecond):
		}
	})
}
