package sdfat

import (
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestIOFS(t *testing.T) {
	fsys := NewIOFS(newAferoImage(t).mount())
	if err := fstest.TestFS(fsys, "hello.txt", "readme", "sub/inner.txt"); err != nil {
		t.Fatal(err)
	}
}

func TestIOFS_ReadFile(t *testing.T) {
	fsys := NewIOFS(newAferoImage(t).mount())

	data, err := fs.ReadFile(fsys, "sub/inner.txt")
	if err != nil || string(data) != "inner" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 3 || entries[2].Name() != "sub" || !entries[2].IsDir() {
		t.Errorf("ReadDir() = %v", entries)
	}
}
