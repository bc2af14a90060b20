package sdfat

import (
	"strings"

	"github.com/aligator/sdfat/checkpoint"
)

// bootSectorSize is the part of sector 0 which contains all fields needed to mount the volume.
// It is also the size used to read sector 0, before the real sector size is known.
const bootSectorSize = 512

var (
	bsJumpBoot          = field{offset: 0x00, width: 3}
	bsBytesPerSector    = field{offset: 0x0B, width: 2}
	bsSectorsPerCluster = field{offset: 0x0D, width: 1}
	bsReservedSectors   = field{offset: 0x0E, width: 2}
	bsNumFATs           = field{offset: 0x10, width: 1}
	bsTotalSectors16    = field{offset: 0x13, width: 2}
	bsMedia             = field{offset: 0x15, width: 1}
	bsTotalSectors32    = field{offset: 0x20, width: 4}
	bsFATSize32         = field{offset: 0x24, width: 4}
	bsRootCluster       = field{offset: 0x2C, width: 4}
	bsVolumeLabel       = field{offset: 0x47, width: 11}
	bsFileSystemType    = field{offset: 0x52, width: 8}
)

// BootSector contains the geometry of a FAT32 volume.
type BootSector struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	FATSize           uint32 // in sectors
	RootCluster       uint32
	TotalSectors      uint32
	Media             uint8
	VolumeLabel       string
	FSType            string

	// RootDirSector is the first sector of the data region, which is where cluster 2 starts.
	// It is not part of the boot sector itself.
	RootDirSector uint32

	jumpBoot [3]byte
}

// ParseBootSector reads the volume geometry from the content of sector 0.
func ParseBootSector(sector []byte) (BootSector, error) {
	var bs BootSector

	if len(sector) < bootSectorSize {
		return bs, checkpoint.Wrapf(ErrInvalidBootSector, nil, "sector is only %d bytes long", len(sector))
	}

	// The length is already checked, so the single field errors can be ignored.
	jump, _ := bsJumpBoot.bytes(sector, 0)
	copy(bs.jumpBoot[:], jump)
	bs.BytesPerSector, _ = bsBytesPerSector.uint16(sector, 0)
	bs.SectorsPerCluster, _ = bsSectorsPerCluster.uint8(sector, 0)
	bs.ReservedSectors, _ = bsReservedSectors.uint16(sector, 0)
	bs.NumFATs, _ = bsNumFATs.uint8(sector, 0)
	bs.Media, _ = bsMedia.uint8(sector, 0)
	bs.FATSize, _ = bsFATSize32.uint32(sector, 0)
	bs.RootCluster, _ = bsRootCluster.uint32(sector, 0)

	total16, _ := bsTotalSectors16.uint16(sector, 0)
	bs.TotalSectors, _ = bsTotalSectors32.uint32(sector, 0)
	if total16 != 0 {
		bs.TotalSectors = uint32(total16)
	}

	label, _ := bsVolumeLabel.bytes(sector, 0)
	bs.VolumeLabel = strings.TrimRight(string(label), " ")
	fsType, _ := bsFileSystemType.bytes(sector, 0)
	bs.FSType = strings.TrimRight(string(fsType), " ")

	if err := bs.validate(); err != nil {
		return BootSector{}, err
	}

	bs.RootDirSector = uint32(bs.ReservedSectors) + uint32(bs.NumFATs)*bs.FATSize
	return bs, nil
}

func (bs BootSector) validate() error {
	// FAT only supports 512, 1024, 2048 and 4096 byte sectors.
	switch bs.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return checkpoint.Wrapf(ErrInvalidBootSector, nil, "invalid sector size %d", bs.BytesPerSector)
	}

	// Sectors per cluster has to be a power of two and greater than 0.
	// Also the whole cluster should not be more than 32K.
	if bs.SectorsPerCluster == 0 || bs.SectorsPerCluster&(bs.SectorsPerCluster-1) != 0 ||
		uint32(bs.BytesPerSector)*uint32(bs.SectorsPerCluster) > 32*1024 {
		return checkpoint.Wrapf(ErrInvalidBootSector, nil, "invalid sectors per cluster %d", bs.SectorsPerCluster)
	}

	if bs.ReservedSectors == 0 {
		return checkpoint.Wrapf(ErrInvalidBootSector, nil, "invalid reserved sector count")
	}

	if bs.NumFATs == 0 {
		return checkpoint.Wrapf(ErrInvalidBootSector, nil, "no FAT present")
	}

	// A FAT16 boot sector has no 32 bit FAT size.
	if bs.FATSize == 0 {
		return checkpoint.Wrapf(ErrInvalidBootSector, nil, "no FAT32 FAT size, the volume may be FAT12 or FAT16")
	}

	if bs.RootCluster < firstDataCluster {
		return checkpoint.Wrapf(ErrInvalidBootSector, nil, "invalid root cluster %d", bs.RootCluster)
	}

	return nil
}

// hasJumpInstruction checks for the x86 jump every FAT boot sector starts with.
func (bs BootSector) hasJumpInstruction() bool {
	return (bs.jumpBoot[0] == 0xEB && bs.jumpBoot[2] == 0x90) || bs.jumpBoot[0] == 0xE9
}

// ClusterSize returns the size of one cluster in bytes.
func (bs BootSector) ClusterSize() uint32 {
	return uint32(bs.BytesPerSector) * uint32(bs.SectorsPerCluster)
}

// SectorOfCluster returns the first sector of the given data cluster.
// Cluster numbers below 2 do not address data and result in ErrInvalidCluster.
func (bs BootSector) SectorOfCluster(cluster uint32) (uint32, error) {
	if cluster < firstDataCluster {
		return 0, checkpoint.Wrapf(ErrInvalidCluster, nil, "cluster %d", cluster)
	}
	return (cluster-firstDataCluster)*uint32(bs.SectorsPerCluster) + bs.RootDirSector, nil
}

// RootSector returns the first sector of the root directory.
func (bs BootSector) RootSector() uint32 {
	// RootCluster is validated during parsing.
	sector, _ := bs.SectorOfCluster(bs.RootCluster)
	return sector
}

// ClusterCount returns the number of data clusters on the volume.
// It is limited by the amount of entries the FAT can hold and, if known, by the size of the volume.
func (bs BootSector) ClusterCount() uint32 {
	count := bs.FATSize*uint32(bs.BytesPerSector)/fatEntrySize - firstDataCluster

	if bs.TotalSectors > bs.RootDirSector {
		if data := (bs.TotalSectors - bs.RootDirSector) / uint32(bs.SectorsPerCluster); data < count {
			count = data
		}
	}

	return count
}
