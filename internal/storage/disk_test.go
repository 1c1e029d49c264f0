package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub", "nested")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"directory", []string{filepath.Join(dir, "sub")}, 3},
		{"file and directory", []string{f1, filepath.Join(dir, "sub")}, 8},
		{"missing skipped", []string{f1, filepath.Join(dir, "nonexistent")}, 5},
		{"empty skipped", []string{"", f1}, 5},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		got, err := DiskUsageBytes(tt.paths...)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %d bytes, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDatabaseFiles(t *testing.T) {
	if DatabaseFiles("") != nil {
		t.Error("empty path should have no files")
	}
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "webrag.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.EnsureCollection(context.Background(), "webdocs_global"); err != nil {
		t.Fatal(err)
	}
	files := DatabaseFiles(store.Path())
	if len(files) != 3 || files[1] != store.Path()+"-wal" {
		t.Errorf("files = %v", files)
	}
	n, err := DiskUsageBytes(files...)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("database should occupy some bytes")
	}
}
