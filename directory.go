package sdfat

import (
	"strings"

	"github.com/aligator/sdfat/checkpoint"
)

// systemPrefix marks entries which are hidden from listings, e.g. "system~1" created by some hosts.
const systemPrefix = "system~"

// EntryLocation is the position of a directory entry on the device.
type EntryLocation struct {
	Sector uint32
	Offset int
}

// scanDir calls fn for every valid short entry in the cluster starting at startSector until fn returns false.
// Only this one cluster is scanned, a directory spanning more clusters is cut off.
func (v *Volume) scanDir(startSector uint32, fn func(entry FileEntry, loc EntryLocation) bool) error {
	for s := uint32(0); s < uint32(v.bs.SectorsPerCluster); s++ {
		sector := startSector + s
		buf, err := v.readSector(sector)
		if err != nil {
			return err
		}

		for offset := 0; offset+entrySize <= len(buf); offset += entrySize {
			switch buf[offset] {
			case entryEnd:
				return nil
			case entryDeleted:
				continue
			}

			entry, err := ReadEntry(buf, offset)
			if err != nil {
				return err
			}

			if entry.isLongName() || entry.isVolumeLabel() {
				continue
			}

			if !fn(entry, EntryLocation{Sector: sector, Offset: offset}) {
				return nil
			}
		}
	}

	return nil
}

func (v *Volume) findEntry(startSector uint32, name string) (FileEntry, EntryLocation, error) {
	raw, err := ShortName(name)
	if err != nil {
		return FileEntry{}, EntryLocation{}, err
	}
	want := CleanName(raw)

	var (
		found    FileEntry
		location EntryLocation
		ok       bool
	)
	err = v.scanDir(startSector, func(entry FileEntry, loc EntryLocation) bool {
		if entry.CleanName() == want {
			found, location, ok = entry, loc, true
			return false
		}
		return true
	})
	if err != nil {
		return FileEntry{}, EntryLocation{}, err
	}

	if !ok {
		return FileEntry{}, EntryLocation{}, checkpoint.Wrapf(ErrNotFound, nil, "name %q", name)
	}

	return found, location, nil
}

// FindEntry searches the directory cluster starting at startSector for the entry with the given name.
// The name is compared case-insensitive against the whole cleaned 8.3 name.
func (v *Volume) FindEntry(startSector uint32, name string) (EntryLocation, error) {
	_, loc, err := v.findEntry(startSector, name)
	return loc, err
}

// ReadDir returns all entries of the directory cluster starting at startSector in their on-disk order.
func (v *Volume) ReadDir(startSector uint32) ([]FileEntry, error) {
	var entries []FileEntry

	err := v.scanDir(startSector, func(entry FileEntry, _ EntryLocation) bool {
		if !strings.HasPrefix(entry.CleanName(), systemPrefix) {
			entries = append(entries, entry)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// ListEntries returns the cleaned names of all entries of the directory cluster starting at startSector.
func (v *Volume) ListEntries(startSector uint32) ([]string, error) {
	entries, err := v.ReadDir(startSector)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.CleanName()
	}
	return names, nil
}

// JoinNames renders names as one text where each name is followed by ';'.
func JoinNames(names []string) string {
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(';')
	}
	return b.String()
}
