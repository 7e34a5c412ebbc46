package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFileSystemSaveLoad(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	ctx := context.Background()

	data := []byte(`{"id":"test-novel"}`)
	if err := fs.Save(ctx, "stories/test-novel.json", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := fs.Load(ctx, "stories/test-novel.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Load() = %q, want %q", got, data)
	}
}

func TestFileSystemSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileSystem(dir)
	ctx := context.Background()

	if err := fs.Save(ctx, "stories/n.json", []byte("v1")); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if err := fs.Save(ctx, "stories/n.json", []byte("v2")); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := fs.Load(ctx, "stories/n.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Load() = %q, want v2", got)
	}

	// The rename-into-place save must not leave temp files behind.
	leftovers, err := filepath.Glob(filepath.Join(dir, "stories", ".*tmp*"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestFileSystemRejectsUnsafePaths(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	ctx := context.Background()

	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../escape.json"},
		{"nested traversal", "stories/../../escape.json"},
		{"absolute path", "/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fs.Save(ctx, tt.path, []byte("x")); err == nil {
				t.Errorf("Save(%q) succeeded, want error", tt.path)
			}
			if _, err := fs.Load(ctx, tt.path); err == nil {
				t.Errorf("Load(%q) succeeded, want error", tt.path)
			}
			if fs.Exists(ctx, tt.path) {
				t.Errorf("Exists(%q) = true, want false", tt.path)
			}
		})
	}
}

func TestFileSystemLoadMissing(t *testing.T) {
	fs := NewFileSystem(t.TempDir())

	_, err := fs.Load(context.Background(), "stories/absent.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestFileSystemExistsAndDelete(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	ctx := context.Background()

	if fs.Exists(ctx, "stories/n.json") {
		t.Error("Exists() = true before save")
	}
	if err := fs.Save(ctx, "stories/n.json", []byte("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !fs.Exists(ctx, "stories/n.json") {
		t.Error("Exists() = false after save")
	}

	if err := fs.Delete(ctx, "stories/n.json"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if fs.Exists(ctx, "stories/n.json") {
		t.Error("Exists() = true after delete")
	}

	// Deleting an already-absent document is not an error.
	if err := fs.Delete(ctx, "stories/n.json"); err != nil {
		t.Errorf("repeat Delete() error = %v", err)
	}
}

func TestFileSystemList(t *testing.T) {
	fs := NewFileSystem(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta"} {
		if err := fs.Save(ctx, "stories/"+name+".json", []byte("{}")); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	got, err := fs.List(ctx, "stories/*.json")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List() = %v, want 2 entries", got)
	}

	if _, err := fs.List(ctx, "../*.json"); err == nil {
		t.Error("List() with traversal pattern succeeded, want error")
	}
}
