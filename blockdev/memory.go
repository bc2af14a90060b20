// Package blockdev provides implementations of sdfat.BlockDevice.
// Sector addresses are converted to byte offsets using the length of the passed buffer.
package blockdev

import (
	"github.com/pkg/errors"
)

var (
	// ErrBlockSize indicates that the buffer passed to ReadBlock or WriteBlock is empty.
	ErrBlockSize = errors.New("invalid block size")

	// ErrOutOfBounds indicates that the requested sector is not part of the device.
	ErrOutOfBounds = errors.New("sector is out of bounds")
)

// Memory is a device which keeps the whole image in memory.
type Memory []byte

// NewMemory creates an empty device of the given size in bytes.
func NewMemory(size int) Memory {
	return make(Memory, size)
}

func (m Memory) check(buf []byte, sector uint32) (int64, error) {
	if len(buf) == 0 {
		return 0, errors.Wrap(ErrBlockSize, "len(buf)")
	}

	off := int64(sector) * int64(len(buf))
	if off+int64(len(buf)) > int64(len(m)) {
		return 0, errors.Wrapf(ErrOutOfBounds, "sector %v: [%v, %v)", sector, off, off+int64(len(buf)))
	}

	return off, nil
}

// ReadBlock copies the sector into buf.
func (m Memory) ReadBlock(buf []byte, sector uint32) error {
	off, err := m.check(buf, sector)
	if err != nil {
		return err
	}

	copy(buf, m[off:])
	return nil
}

// WriteBlock copies buf into the sector.
func (m Memory) WriteBlock(buf []byte, sector uint32) error {
	off, err := m.check(buf, sector)
	if err != nil {
		return err
	}

	copy(m[off:], buf)
	return nil
}
