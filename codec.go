package sdfat

import (
	"math/bits"

	"github.com/aligator/sdfat/checkpoint"
)

// Swap16 reverses the byte order of x.
func Swap16(x uint16) uint16 {
	return bits.ReverseBytes16(x)
}

// Swap32 reverses the byte order of x.
func Swap32(x uint32) uint32 {
	return bits.ReverseBytes32(x)
}

// field describes one fixed position value inside an on-disk structure.
// All FAT structures are little endian, bigEndian only exists to keep the table honest.
type field struct {
	offset    int
	width     int
	bigEndian bool
}

func (f field) end() int {
	return f.offset + f.width
}

// check validates that the field (relative to base) is inside of buf.
func (f field) check(buf []byte, base int) error {
	if base < 0 || base+f.end() > len(buf) {
		return checkpoint.Wrapf(ErrFieldBounds, nil, "field at %d+%d with width %d, buffer of %d bytes", base, f.offset, f.width, len(buf))
	}
	return nil
}

// raw reads the bytes most significant byte first.
func (f field) raw(buf []byte, base int) uint32 {
	var v uint32
	for i := 0; i < f.width; i++ {
		v = v<<8 | uint32(buf[base+f.offset+i])
	}
	return v
}

func (f field) uint8(buf []byte, base int) (uint8, error) {
	if err := f.check(buf, base); err != nil {
		return 0, err
	}
	return buf[base+f.offset], nil
}

func (f field) uint16(buf []byte, base int) (uint16, error) {
	if err := f.check(buf, base); err != nil {
		return 0, err
	}
	v := uint16(f.raw(buf, base))
	if !f.bigEndian {
		v = Swap16(v)
	}
	return v, nil
}

func (f field) uint32(buf []byte, base int) (uint32, error) {
	if err := f.check(buf, base); err != nil {
		return 0, err
	}
	v := f.raw(buf, base)
	if !f.bigEndian {
		v = Swap32(v)
	}
	return v, nil
}

func (f field) bytes(buf []byte, base int) ([]byte, error) {
	if err := f.check(buf, base); err != nil {
		return nil, err
	}
	return buf[base+f.offset : base+f.end()], nil
}

// put writes the lowest f.width bytes of v in the byte order of the field.
func (f field) put(buf []byte, base int, v uint32) error {
	if err := f.check(buf, base); err != nil {
		return err
	}

	if !f.bigEndian {
		switch f.width {
		case 2:
			v = uint32(Swap16(uint16(v)))
		case 4:
			v = Swap32(v)
		}
	}

	for i := f.width - 1; i >= 0; i-- {
		buf[base+f.offset+i] = byte(v)
		v >>= 8
	}
	return nil
}
