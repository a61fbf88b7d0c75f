package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", ".tmp-1", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "c.json"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ListFiles(dir, ".json")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.json", "b.json"}; !reflect.DeepEqual(files, want) {
		t.Errorf("ListFiles = %v, want %v", files, want)
	}
}

func TestListFiles_MissingDir(t *testing.T) {
	files, err := ListFiles("/nonexistent/path", ".json")
	if err != nil {
		t.Fatal(err)
	}
	if files != nil {
		t.Errorf("expected nil, got %v", files)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if FileExists(path) {
		t.Error("file should not exist yet")
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(path) {
		t.Error("file should exist")
	}
	if FileExists(dir) {
		t.Error("a directory is not a file")
	}
}
