package sdfat

import (
	"errors"
	"reflect"
	"testing"
)

// newDirectoryImage creates a root directory with some special entries:
//  slot 0: HELLO.TXT
//  slot 1: deleted entry
//  slot 2: long name record
//  slot 3: volume label
//  slot 4: HELLO.T
//  slot 5: SYSTEM~1 directory
//  slot 6: SUB directory
//  slot 7: README
//  slot 8: end marker, followed by an entry which must never be found
func newDirectoryImage(t *testing.T) *testImage {
	img := newTestImage(t, defaultGeometry)
	img.entry(2, 0, "HELLO   TXT", AttrArchive, 10, 5)
	img.entry(2, 1, "\xe5ONE    TXT", AttrArchive, 11, 5)
	img.entry(2, 2, "Ah\x00e\x00l\x00l\x00o\x00", AttrLongName, 0, 0)
	img.entry(2, 3, "TESTVOL    ", AttrVolumeID, 0, 0)
	img.entry(2, 4, "HELLO   T  ", AttrArchive, 12, 7)
	img.entry(2, 5, "SYSTEM~1   ", AttrDirectory|AttrHidden|AttrSystem, 13, 0)
	img.entry(2, 6, "SUB        ", AttrDirectory, 14, 0)
	img.entry(2, 7, "README     ", AttrArchive, 15, 1)
	img.entry(2, 9, "HIDDEN  TXT", AttrArchive, 16, 1)
	return img
}

func TestVolume_FindEntry(t *testing.T) {
	v := newDirectoryImage(t).mount()
	root := v.BootSector().RootSector()

	tests := []struct {
		name    string
		search  string
		want    EntryLocation
		wantErr error
	}{
		{"first slot is found", "hello.txt", EntryLocation{Sector: root, Offset: 0}, nil},
		{"case insensitive", "HELLO.TXT", EntryLocation{Sector: root, Offset: 0}, nil},
		{"exact match instead of prefix", "hello.t", EntryLocation{Sector: root, Offset: 4 * 32}, nil},
		{"without extension", "readme", EntryLocation{Sector: root, Offset: 7 * 32}, nil},
		{"directory", "sub", EntryLocation{Sector: root, Offset: 6 * 32}, nil},
		{"prefix does not match", "hell", EntryLocation{}, ErrNotFound},
		{"deleted entry", "one.txt", EntryLocation{}, ErrNotFound},
		{"volume label", "testvol", EntryLocation{}, ErrNotFound},
		{"behind the end marker", "hidden.txt", EntryLocation{}, ErrNotFound},
		{"invalid name", "waytoolongname.txt", EntryLocation{}, ErrNameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.FindEntry(root, tt.search)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FindEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FindEntry() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVolume_FindEntrySecondSector(t *testing.T) {
	g := defaultGeometry
	g.sectorsPerCluster = 2
	img := newTestImage(t, g)
	for slot := 0; slot < 17; slot++ {
		img.entry(2, slot, "\xe5DELETED   ", AttrArchive, 0, 0)
	}
	img.entry(2, 17, "DATA    BIN", AttrArchive, 3, 1)
	v := img.mount()

	root := v.BootSector().RootSector()
	got, err := v.FindEntry(root, "data.bin")
	if err != nil {
		t.Fatalf("FindEntry() error = %v", err)
	}
	if want := (EntryLocation{Sector: root + 1, Offset: 32}); got != want {
		t.Errorf("FindEntry() = %+v, want %+v", got, want)
	}
}

func TestVolume_ListEntries(t *testing.T) {
	v := newDirectoryImage(t).mount()

	got, err := v.ListEntries(v.BootSector().RootSector())
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}

	want := []string{"hello.txt", "hello.t", "sub", "readme"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListEntries() = %v, want %v", got, want)
	}

	if got := JoinNames(got); got != "hello.txt;hello.t;sub;readme;" {
		t.Errorf("JoinNames() = %q", got)
	}
}

func TestVolume_ReadDir(t *testing.T) {
	v := newDirectoryImage(t).mount()

	entries, err := v.ReadDir(v.BootSector().RootSector())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("ReadDir() returned %d entries, want 4", len(entries))
	}

	if entries[0].FirstCluster != 10 || entries[0].FileSize != 5 {
		t.Errorf("ReadDir()[0] = %+v", entries[0])
	}
	if !entries[2].IsDir() {
		t.Errorf("ReadDir()[2].IsDir() = false, want true")
	}
}

func TestVolume_ListEntriesEmpty(t *testing.T) {
	v := newTestImage(t, defaultGeometry).mount()

	got, err := v.ListEntries(v.BootSector().RootSector())
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListEntries() = %v, want nothing", got)
	}
	if JoinNames(got) != "" {
		t.Errorf("JoinNames() = %q, want empty", JoinNames(got))
	}
}
