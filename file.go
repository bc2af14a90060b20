package sdfat

import (
	"io"
	"math"
	"strings"
	"syscall"

	"github.com/aligator/sdfat/checkpoint"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// position is the place of a File cursor inside of its cluster chain.
type position struct {
	cluster uint32 // 0 only for a file without any cluster
	sector  uint32 // sector inside of cluster
	ordinal uint32 // index of cluster in the chain
	offset  uint32

	// tail is set if offset is exactly at the end of cluster. The cursor then stays on the
	// last sector of that cluster until the next Read or Write follows the chain.
	tail bool
}

// File is a cursor on one file or directory of a Volume.
// It does not hold any buffered data, so there is nothing to close.
type File struct {
	vol *Volume

	// dirSector is the first sector of the directory the entry was found in.
	dirSector uint32
	entry     FileEntry
	root      bool

	base uint32
	size uint32
	pos  position
}

func (v *Volume) newFile(dirSector uint32, entry FileEntry) *File {
	return &File{
		vol:       v,
		dirSector: dirSector,
		entry:     entry,
		base:      entry.FirstCluster,
		size:      entry.FileSize,
		pos:       position{cluster: entry.FirstCluster},
	}
}

// Open searches the directory cluster starting at startSector for name and opens it.
func (v *Volume) Open(startSector uint32, name string) (*File, error) {
	entry, _, err := v.findEntry(startSector, name)
	if err != nil {
		return nil, err
	}

	return v.newFile(startSector, entry), nil
}

// OpenRoot opens name from the root directory.
func (v *Volume) OpenRoot(name string) (*File, error) {
	return v.Open(v.bs.RootSector(), name)
}

// OpenPath opens a slash separated path relative to the root directory.
// Every directory on the way is searched only in its first cluster.
// An empty path, "." or "/" opens the root directory itself.
func (v *Volume) OpenPath(path string) (*File, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return v.openRootDir(), nil
	}

	dir := v.bs.RootSector()
	for _, part := range parts[:len(parts)-1] {
		entry, _, err := v.findEntry(dir, part)
		if err != nil {
			return nil, err
		}

		if !entry.IsDir() {
			return nil, checkpoint.Wrapf(ErrNotDirectory, nil, "%q in %q", part, path)
		}

		if dir, err = v.dirSectorOf(entry); err != nil {
			return nil, err
		}
	}

	return v.Open(dir, parts[len(parts)-1])
}

func (v *Volume) openRootDir() *File {
	f := v.newFile(0, FileEntry{Attr: AttrDirectory, FirstCluster: v.bs.RootCluster})
	f.root = true
	return f
}

// dirSectorOf returns the first sector of a directory entry.
// ".." entries pointing to the root directory contain cluster 0.
func (v *Volume) dirSectorOf(entry FileEntry) (uint32, error) {
	if entry.FirstCluster == 0 {
		return v.bs.RootSector(), nil
	}
	return v.bs.SectorOfCluster(entry.FirstCluster)
}

func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

// Entry returns the directory entry as it was when it was last read or written by this File.
func (f *File) Entry() FileEntry {
	return f.entry
}

// Size returns the current size of the file.
func (f *File) Size() int64 {
	return int64(f.size)
}

// Offset returns the current cursor position.
func (f *File) Offset() int64 {
	return int64(f.pos.offset)
}

// IsDir reports whether the file is a directory.
func (f *File) IsDir() bool {
	return f.root || f.entry.IsDir()
}

// locate calculates the position of target.
// If fromCurrent is set and target is not before the current cluster, the chain is walked
// from the current cluster. Otherwise it starts at the first cluster of the file.
func (f *File) locate(target uint32, fromCurrent bool) (position, error) {
	if f.base == 0 {
		// A file without clusters is always empty.
		return position{}, nil
	}

	bs := f.vol.bs
	clusterSize := bs.ClusterSize()

	p := position{
		offset:  target,
		ordinal: target / clusterSize,
		sector:  (target / uint32(bs.BytesPerSector)) % uint32(bs.SectorsPerCluster),
	}

	if target == f.size && target > 0 && target%clusterSize == 0 {
		p.ordinal--
		p.sector = uint32(bs.SectorsPerCluster) - 1
		p.tail = true
	}

	cluster, ordinal := f.base, uint32(0)
	if fromCurrent && f.pos.cluster != 0 && p.ordinal >= f.pos.ordinal {
		cluster, ordinal = f.pos.cluster, f.pos.ordinal
	}

	for ; ordinal < p.ordinal; ordinal++ {
		next, err := f.vol.NextCluster(cluster)
		if err != nil {
			return position{}, err
		}

		if !f.vol.isDataCluster(next) {
			return position{}, checkpoint.Wrapf(ErrCorruptChain, nil, "cluster %d links to %#x at index %d of %d", cluster, next, ordinal, p.ordinal)
		}
		cluster = next
	}

	p.cluster = cluster
	return p, nil
}

// Seek moves the cursor. Seeking beyond the end of the file is not possible.
// May return ErrInvalidWhence (also matching syscall.EINVAL) if the whence value is invalid.
// May return ErrSeekOutOfRange (also matching afero.ErrOutOfRange) if the offset is out of range.
// The cursor stays unchanged on any error.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(f.pos.offset) + offset
	case io.SeekEnd:
		target = int64(f.size) + offset
	default:
		return int64(f.pos.offset), checkpoint.Wrapf(syscall.EINVAL, ErrInvalidWhence, "offset: %v, whence: %v", offset, whence)
	}

	if target < 0 || target > int64(f.size) {
		return int64(f.pos.offset), checkpoint.Wrapf(afero.ErrOutOfRange, ErrSeekOutOfRange, "offset: %v, whence: %v, size: %v", offset, whence, f.size)
	}

	p, err := f.locate(uint32(target), whence == io.SeekCurrent)
	if err != nil {
		return int64(f.pos.offset), err
	}

	f.pos = p
	return target, nil
}

// nextSector moves the cursor to the next sector after a sector was completed.
// After the last sector of a cluster the cursor stays there with tail set. The chain is only
// followed when more data is read, so a failing FAT read leaves a cursor which can be retried.
func (f *File) nextSector() {
	if f.pos.sector+1 < uint32(f.vol.bs.SectorsPerCluster) {
		f.pos.sector++
		return
	}
	f.pos.tail = true
}

// followChain moves the cursor to the first sector of the next cluster of the chain.
func (f *File) followChain() error {
	next, err := f.vol.NextCluster(f.pos.cluster)
	if err != nil {
		return err
	}

	if !f.vol.isDataCluster(next) {
		return checkpoint.Wrapf(ErrCorruptChain, nil, "cluster %d links to %#x at offset %d", f.pos.cluster, next, f.pos.offset)
	}

	f.pos.cluster = next
	f.pos.ordinal++
	f.pos.sector = 0
	f.pos.tail = false
	return nil
}

// Read reads up to len(p) bytes starting at the cursor.
// At the end of the file it returns 0, io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if f.pos.offset >= f.size {
		return 0, io.EOF
	}

	bps := uint32(f.vol.bs.BytesPerSector)
	n := 0
	for n < len(p) && f.pos.offset < f.size {
		if f.pos.tail {
			if err := f.followChain(); err != nil {
				return n, err
			}
		}

		first, err := f.vol.bs.SectorOfCluster(f.pos.cluster)
		if err != nil {
			return n, checkpoint.From(err)
		}

		buf, err := f.vol.readSector(first + f.pos.sector)
		if err != nil {
			return n, err
		}

		inSector := f.pos.offset % bps
		chunk := minUint32(bps-inSector, uint32(len(p)-n), f.size-f.pos.offset)
		copy(p[n:], buf[inSector:inSector+chunk])

		n += int(chunk)
		f.pos.offset += chunk

		if f.pos.offset%bps == 0 {
			f.nextSector()
		}
	}

	return n, nil
}

// ReadAt reads len(p) bytes starting at off without moving the cursor.
// If less than len(p) bytes are available it returns io.EOF together with the bytes read.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, checkpoint.Wrapf(afero.ErrOutOfRange, ErrSeekOutOfRange, "offset: %v", off)
	}

	if len(p) == 0 {
		return 0, nil
	}

	if off >= int64(f.size) {
		return 0, io.EOF
	}

	c := *f
	if _, err := c.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}

	n, err := c.Read(p)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

// Write appends p to the end of the file, regardless of the current offset.
// New clusters are allocated as needed and filled with zeros.
// Finally the size, first cluster and write time of the directory entry are updated.
//
// If anything fails before the directory entry is updated, the entry still holds the old size
// and the cursor is moved back to the old end of the file. Clusters which were already linked
// stay allocated.
func (f *File) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if f.IsDir() {
		return 0, checkpoint.Wrapf(ErrIsDirectory, nil, "write to %q", f.entry.CleanName())
	}

	if uint64(f.size)+uint64(len(p)) > math.MaxUint32 {
		return 0, checkpoint.Wrapf(ErrNotSupported, nil, "file would exceed 4 GiB")
	}

	if f.pos.offset != f.size {
		if _, err := f.Seek(int64(f.size), io.SeekStart); err != nil {
			return 0, err
		}
	}

	oldBase, oldPos := f.base, f.pos
	if err := f.appendData(p); err != nil {
		f.base, f.pos = oldBase, oldPos
		return 0, err
	}

	if err := f.updateEntry(f.pos.offset); err != nil {
		f.base, f.pos = oldBase, oldPos
		return 0, err
	}

	return len(p), nil
}

func (f *File) appendData(p []byte) error {
	v := f.vol
	bps := uint32(v.bs.BytesPerSector)

	if f.base == 0 {
		cluster, err := v.FindFreeCluster()
		if err != nil {
			return err
		}
		if err := v.TerminateChain(cluster); err != nil {
			return err
		}
		if err := v.zeroCluster(cluster); err != nil {
			return err
		}

		f.base = cluster
		f.pos = position{cluster: cluster}
	}

	n := 0
	for n < len(p) {
		if f.pos.tail {
			if err := f.extend(); err != nil {
				return err
			}
		}

		first, err := v.bs.SectorOfCluster(f.pos.cluster)
		if err != nil {
			return checkpoint.From(err)
		}

		sector := first + f.pos.sector
		buf, err := v.readSector(sector)
		if err != nil {
			return err
		}

		inSector := f.pos.offset % bps
		chunk := minUint32(bps-inSector, uint32(len(p)-n))
		copy(buf[inSector:], p[n:n+int(chunk)])

		if err := v.writeSector(sector); err != nil {
			return err
		}

		n += int(chunk)
		f.pos.offset += chunk

		if f.pos.offset%bps == 0 {
			if f.pos.sector+1 < uint32(v.bs.SectorsPerCluster) {
				f.pos.sector++
			} else {
				// The next cluster is only needed if more data follows.
				f.pos.tail = true
			}
		}
	}

	return nil
}

// extend moves the cursor from the end of its cluster into the next one.
// A cluster which is already linked is reused, otherwise a free one is appended to the chain.
func (f *File) extend() error {
	v := f.vol

	next, err := v.NextCluster(f.pos.cluster)
	if err != nil {
		return err
	}

	if !v.isDataCluster(next) {
		if next, err = v.FindFreeCluster(); err != nil {
			return err
		}
		if err := v.LinkCluster(f.pos.cluster, next); err != nil {
			return err
		}
		if err := v.zeroCluster(next); err != nil {
			return err
		}

		v.log.WithFields(logrus.Fields{
			"file":    f.entry.CleanName(),
			"cluster": next,
			"index":   f.pos.ordinal + 1,
		}).Debug("extended file")
	}

	f.pos.cluster = next
	f.pos.ordinal++
	f.pos.sector = 0
	f.pos.tail = false
	return nil
}

// updateEntry searches the entry again in its directory and stores the new size in it.
func (f *File) updateEntry(size uint32) error {
	v := f.vol

	entry, loc, err := v.findEntry(f.dirSector, f.entry.CleanName())
	if err != nil {
		return err
	}

	buf, err := v.readSector(loc.Sector)
	if err != nil {
		return err
	}

	now := v.now()
	entry.FileSize = size
	entry.FirstCluster = f.base
	entry.WriteDate = FormatDate(now)
	entry.WriteTime = FormatTime(now)

	if err := entry.encodeInto(buf, loc.Offset); err != nil {
		return err
	}

	if err := v.writeSector(loc.Sector); err != nil {
		return err
	}

	f.entry = entry
	f.size = size
	return nil
}

func minUint32(values ...uint32) uint32 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
