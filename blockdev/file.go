package blockdev

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Storage is what File needs from its backing store. afero.File and *os.File implement it.
type Storage interface {
	io.ReaderAt
	io.WriterAt
}

// File is a device backed by a disk image or any other Storage.
type File struct {
	s    Storage
	size int64
	name string
}

// NewFile uses s as device of the given size in bytes.
func NewFile(s Storage, size int64) *File {
	name := ""
	if named, ok := s.(interface{ Name() string }); ok {
		name = named.Name()
	}

	return &File{s: s, size: size, name: name}
}

// Open opens the image at path from fs for reading and writing.
// The device has the size of the file.
func Open(fs afero.Fs, path string) (*File, error) {
	f, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}

	info, err := f.Stat()
	if err != nil {
		return nil, multierr.Append(errors.Wrap(err, "stat image"), f.Close())
	}

	logrus.WithFields(logrus.Fields{
		"name": info.Name(),
		"size": info.Size(),
	}).Debug("opened image")

	return NewFile(f, info.Size()), nil
}

// Size returns the size of the device in bytes.
func (f *File) Size() int64 {
	return f.size
}

func (f *File) check(buf []byte, sector uint32, op string) (int64, error) {
	if len(buf) == 0 {
		return 0, errors.Wrapf(ErrBlockSize, "%s %s: len(buf)", op, f.name)
	}

	off := int64(sector) * int64(len(buf))
	if off+int64(len(buf)) > f.size {
		return 0, errors.Wrapf(ErrOutOfBounds, "%s %s: sector %v: [%v, %v)", op, f.name, sector, off, off+int64(len(buf)))
	}

	return off, nil
}

// ReadBlock reads the sector into buf.
func (f *File) ReadBlock(buf []byte, sector uint32) error {
	off, err := f.check(buf, sector, "read")
	if err != nil {
		return err
	}

	// ReaderAt may return io.EOF together with the last complete block.
	n, err := f.s.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return errors.Wrapf(err, "read %s: sector %v", f.name, sector)
	}
	return nil
}

// WriteBlock writes buf to the sector.
func (f *File) WriteBlock(buf []byte, sector uint32) error {
	off, err := f.check(buf, sector, "write")
	if err != nil {
		return err
	}

	if _, err := f.s.WriteAt(buf, off); err != nil {
		return errors.Wrapf(err, "write %s: sector %v", f.name, sector)
	}
	return nil
}

// Close syncs and closes the storage if it supports that.
// Errors of both steps are returned combined.
func (f *File) Close() error {
	var err error
	if s, ok := f.s.(interface{ Sync() error }); ok {
		err = multierr.Append(err, s.Sync())
	}
	if c, ok := f.s.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
