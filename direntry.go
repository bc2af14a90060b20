package sdfat

import (
	"strings"
	"time"

	"github.com/aligator/sdfat/checkpoint"
)

// entrySize is the size of one directory entry, short and long ones.
const entrySize = 32

const (
	entryEnd     = 0x00 // This and all following entries are free.
	entryDeleted = 0xE5
	entryKanji   = 0x05 // The real first character is 0xE5.
)

// Attributes of a directory entry.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

var (
	deName           = field{offset: 0x00, width: 11}
	deAttr           = field{offset: 0x0B, width: 1}
	deFirstClusterHi = field{offset: 0x14, width: 2}
	deWriteTime      = field{offset: 0x16, width: 2}
	deWriteDate      = field{offset: 0x18, width: 2}
	deFirstClusterLo = field{offset: 0x1A, width: 2}
	deFileSize       = field{offset: 0x1C, width: 4}
)

// FileEntry is a snapshot of one short directory entry.
type FileEntry struct {
	Name         [11]byte
	Attr         byte
	FirstCluster uint32
	FileSize     uint32
	WriteTime    uint16
	WriteDate    uint16
}

// ReadEntry decodes the directory entry at offset inside of the given sector.
func ReadEntry(sector []byte, offset int) (FileEntry, error) {
	var e FileEntry

	if err := (field{offset: 0, width: entrySize}).check(sector, offset); err != nil {
		return e, checkpoint.From(err)
	}

	name, _ := deName.bytes(sector, offset)
	copy(e.Name[:], name)
	e.Attr, _ = deAttr.uint8(sector, offset)
	hi, _ := deFirstClusterHi.uint16(sector, offset)
	lo, _ := deFirstClusterLo.uint16(sector, offset)
	e.FirstCluster = uint32(hi)<<16 | uint32(lo)
	e.FileSize, _ = deFileSize.uint32(sector, offset)
	e.WriteTime, _ = deWriteTime.uint16(sector, offset)
	e.WriteDate, _ = deWriteDate.uint16(sector, offset)

	return e, nil
}

// encodeInto writes the mutable fields of the entry (first cluster, size and write timestamp)
// to the entry at offset. The name and attributes stay untouched.
func (e FileEntry) encodeInto(sector []byte, offset int) error {
	if err := (field{offset: 0, width: entrySize}).check(sector, offset); err != nil {
		return checkpoint.From(err)
	}

	_ = deFirstClusterHi.put(sector, offset, e.FirstCluster>>16)
	_ = deFirstClusterLo.put(sector, offset, e.FirstCluster&0xFFFF)
	_ = deFileSize.put(sector, offset, e.FileSize)
	_ = deWriteTime.put(sector, offset, uint32(e.WriteTime))
	_ = deWriteDate.put(sector, offset, uint32(e.WriteDate))
	return nil
}

// CleanName returns the normalized, lower case name of the entry.
func (e FileEntry) CleanName() string {
	return CleanName(e.Name)
}

// IsDir reports whether the entry describes a directory.
func (e FileEntry) IsDir() bool {
	return e.Attr&AttrDirectory != 0
}

// isLongName reports records which belong to a long filename.
// The third name byte is 0 for the usual ASCII long names, the attribute check catches the rest.
func (e FileEntry) isLongName() bool {
	return e.Name[2] == 0x00 || e.Attr&AttrLongName == AttrLongName
}

func (e FileEntry) isVolumeLabel() bool {
	return e.Attr&(AttrVolumeID|AttrDirectory) == AttrVolumeID
}

// ModTime returns the last write time of the entry.
func (e FileEntry) ModTime() time.Time {
	writeDate := ParseDate(e.WriteDate)
	writeTime := ParseTime(e.WriteTime)

	// If the date IsZero() it contained any invalid value in which case we return time.Time{}.
	if writeDate.IsZero() {
		return time.Time{}
	}

	return time.Date(writeDate.Year(), writeDate.Month(), writeDate.Day(), writeTime.Hour(), writeTime.Minute(), writeTime.Second(), 0, time.UTC)
}

// CleanName converts a raw, space padded 8.3 name like "HELLO   TXT" to "hello.txt".
// The extension and its dot are only added if the extension is not blank.
func CleanName(raw [11]byte) string {
	name := make([]byte, 0, 12)

	for i := 0; i < 8 && raw[i] != ' '; i++ {
		c := raw[i]
		if i == 0 && c == entryKanji {
			c = entryDeleted
		}
		name = append(name, toLower(c))
	}

	if raw[8] != ' ' {
		name = append(name, '.')
		for i := 8; i < 11; i++ {
			if raw[i] == ' ' {
				break
			}
			name = append(name, toLower(raw[i]))
		}
	}

	return string(name)
}

// ShortName converts a name like "hello.txt" into its raw, upper case and space padded
// representation "HELLO   TXT". It fails with ErrNameTooLong if the name does not fit.
func ShortName(name string) ([11]byte, error) {
	var raw [11]byte
	for i := range raw {
		raw[i] = ' '
	}

	// "." and ".." are stored as they are.
	if name == "." || name == ".." {
		copy(raw[:], name)
		return raw, nil
	}

	base, ext := name, ""
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		base, ext = name[:dot], name[dot+1:]
	}

	if base == "" || len(base) > 8 || len(ext) > 3 {
		return raw, checkpoint.Wrapf(ErrNameTooLong, nil, "name %q", name)
	}

	for i := 0; i < len(base); i++ {
		raw[i] = toUpper(base[i])
	}
	for i := 0; i < len(ext); i++ {
		raw[8+i] = toUpper(ext[i])
	}

	return raw, nil
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
