package sdfat

import "errors"

// These errors may occur while working with a volume.
// They are usually wrapped using the checkpoint package, so always check them with errors.Is.
var (
	ErrNotFound          = errors.New("entry not found")
	ErrVolumeFull        = errors.New("no free cluster left on the volume")
	ErrDeviceIO          = errors.New("block device I/O failed")
	ErrSeekOutOfRange    = errors.New("seek target is outside of the file")
	ErrInvalidBootSector = errors.New("invalid boot sector")
	ErrNameTooLong       = errors.New("name does not fit into a short 8.3 name")

	ErrInvalidCluster = errors.New("cluster number is outside of the FAT")
	ErrCorruptChain   = errors.New("cluster chain ends before the expected position")
	ErrInvalidWhence  = errors.New("invalid whence")
	ErrNotSupported   = errors.New("operation not supported")
	ErrIsDirectory    = errors.New("is a directory")
	ErrNotDirectory   = errors.New("not a directory")
	ErrFieldBounds    = errors.New("on-disk field exceeds the buffer")
)
