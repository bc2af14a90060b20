package sdfat

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/aligator/sdfat/blockdev"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// testGeometry describes a small FAT32 image built by newTestImage.
type testGeometry struct {
	bytesPerSector    uint16
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	fatSize           uint32
	clusters          uint32
}

// defaultGeometry has 512 byte sectors and clusters, 2 FATs and 100 data clusters.
var defaultGeometry = testGeometry{
	bytesPerSector:    512,
	sectorsPerCluster: 1,
	reservedSectors:   32,
	numFATs:           2,
	fatSize:           1,
	clusters:          100,
}

// testNow is used as clock of all test volumes.
var testNow = time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC)

// testImage is an in-memory FAT32 image with helpers to place files and chains at known positions.
type testImage struct {
	t   *testing.T
	g   testGeometry
	mem blockdev.Memory
}

func (g testGeometry) rootDirSector() uint32 {
	return uint32(g.reservedSectors) + uint32(g.numFATs)*g.fatSize
}

func (g testGeometry) totalSectors() uint32 {
	return g.rootDirSector() + g.clusters*uint32(g.sectorsPerCluster)
}

func newTestImage(t *testing.T, g testGeometry) *testImage {
	t.Helper()

	img := &testImage{
		t:   t,
		g:   g,
		mem: blockdev.NewMemory(int(g.totalSectors()) * int(g.bytesPerSector)),
	}

	bs := img.mem[:512]
	copy(bs[0:3], []byte{0xEB, 0x58, 0x90})
	copy(bs[3:11], "SDFATTST")
	binary.LittleEndian.PutUint16(bs[0x0B:], g.bytesPerSector)
	bs[0x0D] = g.sectorsPerCluster
	binary.LittleEndian.PutUint16(bs[0x0E:], g.reservedSectors)
	bs[0x10] = g.numFATs
	bs[0x15] = 0xF8
	binary.LittleEndian.PutUint32(bs[0x20:], g.totalSectors())
	binary.LittleEndian.PutUint32(bs[0x24:], g.fatSize)
	binary.LittleEndian.PutUint32(bs[0x2C:], 2)
	copy(bs[0x47:0x52], "TESTVOL    ")
	copy(bs[0x52:0x5A], "FAT32   ")
	bs[510], bs[511] = 0x55, 0xAA

	img.setFAT(0, 0x0FFFFFF8)
	img.setFAT(1, 0x0FFFFFFF)
	img.setFAT(2, 0x0FFFFFFF)

	return img
}

func (img *testImage) sectorOffset(sector uint32) int {
	return int(sector) * int(img.g.bytesPerSector)
}

func (img *testImage) clusterOffset(cluster uint32) int {
	return img.sectorOffset(img.g.rootDirSector() + (cluster-2)*uint32(img.g.sectorsPerCluster))
}

func (img *testImage) clusterSize() int {
	return int(img.g.bytesPerSector) * int(img.g.sectorsPerCluster)
}

func (img *testImage) fatOffset(mirror int, cluster uint32) int {
	return img.sectorOffset(uint32(img.g.reservedSectors)+uint32(mirror)*img.g.fatSize) + int(cluster)*4
}

// setFAT writes the raw value into the slot of cluster in all mirrors.
func (img *testImage) setFAT(cluster, value uint32) {
	for m := 0; m < int(img.g.numFATs); m++ {
		binary.LittleEndian.PutUint32(img.mem[img.fatOffset(m, cluster):], value)
	}
}

// fat returns the raw value of the slot of cluster in the given mirror.
func (img *testImage) fat(mirror int, cluster uint32) uint32 {
	return binary.LittleEndian.Uint32(img.mem[img.fatOffset(mirror, cluster):])
}

// chain links the clusters in the given order and terminates the chain.
func (img *testImage) chain(clusters ...uint32) {
	for i, c := range clusters {
		if i+1 < len(clusters) {
			img.setFAT(c, clusters[i+1])
		} else {
			img.setFAT(c, 0x0FFFFFFF)
		}
	}
}

// entry writes a raw directory entry into slot of the directory at dirCluster.
// name has to be the raw 11 byte name like "HELLO   TXT".
func (img *testImage) entry(dirCluster uint32, slot int, name string, attr byte, firstCluster, size uint32) {
	if len(name) != 11 {
		img.t.Fatalf("raw name %q has to be 11 bytes long", name)
	}

	e := img.mem[img.clusterOffset(dirCluster)+slot*32:][:32]
	for i := range e {
		e[i] = 0
	}
	copy(e[0:11], name)
	e[0x0B] = attr
	binary.LittleEndian.PutUint16(e[0x14:], uint16(firstCluster>>16))
	binary.LittleEndian.PutUint16(e[0x1A:], uint16(firstCluster))
	binary.LittleEndian.PutUint32(e[0x1C:], size)
}

// readEntry returns first cluster and size of the entry in slot of the directory at dirCluster.
func (img *testImage) readEntry(dirCluster uint32, slot int) (firstCluster, size uint32) {
	e := img.mem[img.clusterOffset(dirCluster)+slot*32:][:32]
	firstCluster = uint32(binary.LittleEndian.Uint16(e[0x14:]))<<16 | uint32(binary.LittleEndian.Uint16(e[0x1A:]))
	return firstCluster, binary.LittleEndian.Uint32(e[0x1C:])
}

// file places data in the given clusters, links them and adds a root directory entry in slot.
func (img *testImage) file(slot int, name string, data []byte, clusters ...uint32) {
	first := uint32(0)
	if len(clusters) > 0 {
		first = clusters[0]
		img.chain(clusters...)
	}

	rest := data
	for _, c := range clusters {
		n := copy(img.mem[img.clusterOffset(c):][:img.clusterSize()], rest)
		rest = rest[n:]
	}
	if len(rest) > 0 {
		img.t.Fatalf("%d bytes of %q do not fit into the clusters", len(rest), name)
	}

	img.entry(2, slot, name, AttrArchive, first, uint32(len(data)))
}

// mount mounts the image with the fixed test clock and a test logger.
func (img *testImage) mount() *Volume {
	img.t.Helper()

	v, err := Mount(img.mem)
	if err != nil {
		img.t.Fatalf("Mount() error = %v", err)
	}

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	v.SetLogger(logger)
	v.now = func() time.Time { return testNow }
	return v
}

// testData returns n bytes of a repeating, position dependent pattern.
func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}
