package blockdev

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImage(t *testing.T, fs afero.Fs, size int) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, "disk.img", make([]byte, size), 0644))
}

func TestOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	newImage(t, fs, 8*512)

	dev, err := Open(fs, "disk.img")
	require.NoError(t, err)
	assert.EqualValues(t, 8*512, dev.Size())

	sector := make([]byte, 512)
	copy(sector, "last sector")
	require.NoError(t, dev.WriteBlock(sector, 7))

	got := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(got, 7))
	assert.Equal(t, sector, got)

	assert.Equal(t, ErrOutOfBounds, pkgerrors.Cause(dev.ReadBlock(got, 8)))
	require.NoError(t, dev.Close())

	// The data has to be in the image after closing.
	data, err := afero.ReadFile(fs, "disk.img")
	require.NoError(t, err)
	assert.Equal(t, "last sector", string(data[7*512:7*512+11]))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(afero.NewMemMapFs(), "missing.img")
	assert.Error(t, err)
}

type failingStorage struct {
	err error
}

func (f failingStorage) ReadAt(p []byte, off int64) (int, error)  { return 0, f.err }
func (f failingStorage) WriteAt(p []byte, off int64) (int, error) { return 0, f.err }
func (f failingStorage) Sync() error                              { return f.err }
func (f failingStorage) Close() error                             { return errors.New("close failed") }

func TestFileErrors(t *testing.T) {
	storageErr := errors.New("storage failed")
	dev := NewFile(failingStorage{err: storageErr}, 512*4)

	buf := make([]byte, 512)
	assert.Equal(t, storageErr, pkgerrors.Cause(dev.ReadBlock(buf, 0)))
	assert.Equal(t, storageErr, pkgerrors.Cause(dev.WriteBlock(buf, 1)))
	assert.Equal(t, ErrBlockSize, pkgerrors.Cause(dev.ReadBlock(nil, 0)))

	// Both, sync and close errors are reported.
	err := dev.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage failed")
	assert.Contains(t, err.Error(), "close failed")
}
