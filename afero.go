package sdfat

import (
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aligator/sdfat/checkpoint"
	"github.com/spf13/afero"
)

// Fs provides a mounted volume as afero.Fs.
// Files can be read, seeked and appended to. Everything which would change the directory
// structure is refused with ErrNotSupported.
type Fs struct {
	vol *Volume
}

var (
	_ afero.Fs   = (*Fs)(nil)
	_ afero.File = (*aferoFile)(nil)
)

// NewFs wraps the volume.
func NewFs(v *Volume) *Fs {
	return &Fs{vol: v}
}

// notSupported returns ErrNotSupported which also matches syscall.EPERM.
func notSupported() error {
	return checkpoint.Wrap(syscall.EPERM, ErrNotSupported)
}

// pathError wraps err like the os package does. Entries which cannot be found also match os.ErrNotExist.
func pathError(op, name string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNameTooLong) {
		err = checkpoint.Wrap(err, os.ErrNotExist)
	}
	return &os.PathError{Op: op, Path: name, Err: err}
}

// cleanPath converts name into a slash separated path without "." and ".." elements.
func cleanPath(name string) string {
	return path.Clean("/" + filepath.ToSlash(name))
}

func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens an existing file. O_CREATE, O_TRUNC and O_EXCL are not supported.
// Writing always appends to the file, whether O_APPEND is set or not.
func (fs *Fs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if flag&(os.O_CREATE|os.O_TRUNC|os.O_EXCL) != 0 {
		return nil, pathError("open", name, notSupported())
	}

	cleaned := cleanPath(name)
	f, err := fs.vol.OpenPath(cleaned)
	if err != nil {
		return nil, pathError("open", name, err)
	}

	writable := flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND) != 0
	if writable && f.IsDir() {
		return nil, pathError("open", name, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory))
	}

	return &aferoFile{
		File:     f,
		name:     name,
		rootName: path.Base(filepath.ToSlash(name)),
		readable: flag&os.O_WRONLY == 0,
		writable: writable,
	}, nil
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	f, err := fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		if pathErr, ok := err.(*os.PathError); ok {
			pathErr.Op = "stat"
		}
		return nil, err
	}
	defer f.Close()

	return f.Stat()
}

func (fs *Fs) Name() string {
	return "sdfat"
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, pathError("create", name, notSupported())
}

func (fs *Fs) Mkdir(name string, _ os.FileMode) error {
	return pathError("mkdir", name, notSupported())
}

func (fs *Fs) MkdirAll(path string, _ os.FileMode) error {
	return pathError("mkdir", path, notSupported())
}

func (fs *Fs) Remove(name string) error {
	return pathError("remove", name, notSupported())
}

func (fs *Fs) RemoveAll(path string) error {
	return pathError("remove", path, notSupported())
}

func (fs *Fs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: notSupported()}
}

func (fs *Fs) Chmod(name string, _ os.FileMode) error {
	return pathError("chmod", name, notSupported())
}

func (fs *Fs) Chown(name string, _, _ int) error {
	return pathError("chown", name, notSupported())
}

func (fs *Fs) Chtimes(name string, _ time.Time, _ time.Time) error {
	return pathError("chtimes", name, notSupported())
}

// aferoFile adds everything needed for afero.File to a File.
type aferoFile struct {
	*File
	name string

	// rootName is used as name of the root directory in Stat.
	rootName string

	readable bool
	writable bool

	// dirOffset is the number of directory entries already returned by Readdir.
	dirOffset int
}

func (f *aferoFile) check(op string) error {
	if f.File == nil {
		return pathError(op, f.name, os.ErrClosed)
	}
	return nil
}

func (f *aferoFile) Close() error {
	if err := f.check("close"); err != nil {
		return err
	}

	f.File = nil
	f.dirOffset = 0
	return nil
}

func (f *aferoFile) Name() string {
	return f.name
}

func (f *aferoFile) Read(p []byte) (int, error) {
	if err := f.check("read"); err != nil {
		return 0, err
	}
	if !f.readable {
		return 0, pathError("read", f.name, syscall.EBADF)
	}
	if f.IsDir() {
		return 0, pathError("read", f.name, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory))
	}

	return f.File.Read(p)
}

func (f *aferoFile) ReadAt(p []byte, off int64) (int, error) {
	if err := f.check("read"); err != nil {
		return 0, err
	}
	if !f.readable {
		return 0, pathError("read", f.name, syscall.EBADF)
	}
	if f.IsDir() {
		return 0, pathError("read", f.name, checkpoint.Wrap(syscall.EISDIR, ErrIsDirectory))
	}

	return f.File.ReadAt(p, off)
}

func (f *aferoFile) Seek(offset int64, whence int) (int64, error) {
	if err := f.check("seek"); err != nil {
		return 0, err
	}

	return f.File.Seek(offset, whence)
}

// Write appends p to the file.
func (f *aferoFile) Write(p []byte) (int, error) {
	if err := f.check("write"); err != nil {
		return 0, err
	}
	if !f.writable {
		return 0, pathError("write", f.name, syscall.EBADF)
	}

	return f.File.Write(p)
}

func (f *aferoFile) WriteAt(_ []byte, _ int64) (int, error) {
	return 0, pathError("write", f.name, notSupported())
}

func (f *aferoFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *aferoFile) Truncate(_ int64) error {
	return pathError("truncate", f.name, notSupported())
}

// Sync does nothing as every write goes directly to the device.
func (f *aferoFile) Sync() error {
	return f.check("sync")
}

func (f *aferoFile) Stat() (os.FileInfo, error) {
	if err := f.check("stat"); err != nil {
		return nil, err
	}

	info := entryFileInfo{entry: f.Entry()}
	if f.root {
		info.name = f.rootName
	}
	return info, nil
}

// Readdir reads the contents of a directory with the same semantics as os.File.Readdir.
// "." and ".." are left out.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *aferoFile) Readdir(count int) ([]os.FileInfo, error) {
	if err := f.check("readdirent"); err != nil {
		return nil, err
	}
	if !f.IsDir() {
		return nil, pathError("readdirent", f.name, checkpoint.Wrap(syscall.ENOTDIR, ErrNotDirectory))
	}

	sector, err := f.vol.dirSectorOf(f.Entry())
	if err != nil {
		return nil, pathError("readdirent", f.name, err)
	}

	entries, err := f.vol.ReadDir(sector)
	if err != nil {
		return nil, pathError("readdirent", f.name, err)
	}

	content := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		if name := e.CleanName(); name == "." || name == ".." {
			continue
		}
		content = append(content, e.FileInfo())
	}

	if f.dirOffset > len(content) {
		f.dirOffset = len(content)
	}
	content = content[f.dirOffset:]

	if count <= 0 {
		f.dirOffset += len(content)
		return content, nil
	}

	if len(content) == 0 {
		return nil, io.EOF
	}

	if count < len(content) {
		content = content[:count]
	}
	f.dirOffset += len(content)
	return content, nil
}

func (f *aferoFile) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, err
}
