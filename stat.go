package sdfat

import (
	"os"
	"time"
)

// FileInfo returns the entry as os.FileInfo.
func (e FileEntry) FileInfo() os.FileInfo {
	return entryFileInfo{entry: e}
}

type entryFileInfo struct {
	entry FileEntry

	// name overrides the cleaned entry name, used for the root directory.
	name string
}

func (e entryFileInfo) Name() string {
	if e.name != "" {
		return e.name
	}
	return e.entry.CleanName()
}

func (e entryFileInfo) Size() int64 {
	return int64(e.entry.FileSize)
}

func (e entryFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0555
	}
	if e.entry.Attr&AttrReadOnly != 0 {
		return 0444
	}
	return 0644
}

func (e entryFileInfo) ModTime() time.Time {
	return e.entry.ModTime()
}

func (e entryFileInfo) IsDir() bool {
	return e.entry.IsDir()
}

func (e entryFileInfo) Sys() interface{} {
	return e.entry
}
