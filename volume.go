// Package sdfat implements a small FAT32 driver which works directly on the sectors of a block device.
// It supports looking up files by their short 8.3 name, reading, seeking and appending.
// Long filenames, creating files or directories and concurrent access are not supported.
//
// A Volume and all Files opened from it share one sector buffer.
// They must not be used from more than one goroutine at a time.
package sdfat

import (
	"time"

	"github.com/aligator/sdfat/checkpoint"
	"github.com/sirupsen/logrus"
)

// BlockDevice is the storage the volume lives on, for example an SD card.
// len(buf) is always the sector size of the volume, except for the very first read of sector 0
// which uses 512 bytes because the real sector size is not known yet.
// Generated mock using mockgen:
//  mockgen -source=volume.go -destination=blockdevice_mock_test.go -package sdfat
type BlockDevice interface {
	ReadBlock(buf []byte, sector uint32) error
	WriteBlock(buf []byte, sector uint32) error
}

// Volume is one mounted FAT32 filesystem.
type Volume struct {
	dev BlockDevice
	bs  BootSector

	// buf is the scratch buffer of exactly one sector used by all operations.
	buf []byte

	log logrus.FieldLogger
	now func() time.Time
}

// Mount reads the boot sector of the device and validates it.
func Mount(dev BlockDevice) (*Volume, error) {
	return mount(dev, false)
}

// MountSkipChecks works like Mount but skips the check for the jump instruction at the start of the boot sector.
// This may allow you to open not perfectly standard FAT volumes.
// Use with caution!
func MountSkipChecks(dev BlockDevice) (*Volume, error) {
	return mount(dev, true)
}

func mount(dev BlockDevice, skipChecks bool) (*Volume, error) {
	// The boot sector fields are always inside of the first 512 bytes.
	sector0 := make([]byte, bootSectorSize)
	if err := dev.ReadBlock(sector0, 0); err != nil {
		return nil, checkpoint.Wrapf(err, ErrDeviceIO, "read boot sector")
	}

	bs, err := ParseBootSector(sector0)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	if !skipChecks && !bs.hasJumpInstruction() {
		return nil, checkpoint.Wrapf(ErrInvalidBootSector, nil, "no valid jump instruction at the beginning")
	}

	v := &Volume{
		dev: dev,
		bs:  bs,
		buf: make([]byte, bs.BytesPerSector),
		now: time.Now,
	}
	v.SetLogger(nil)

	v.log.WithFields(logrus.Fields{
		"bytesPerSector":    bs.BytesPerSector,
		"sectorsPerCluster": bs.SectorsPerCluster,
		"reservedSectors":   bs.ReservedSectors,
		"numFATs":           bs.NumFATs,
		"fatSize":           bs.FATSize,
		"rootCluster":       bs.RootCluster,
		"rootDirSector":     bs.RootDirSector,
	}).Debug("mounted volume")

	return v, nil
}

// SetLogger replaces the logger of the volume.
// nil resets it to the logrus standard logger.
func (v *Volume) SetLogger(log logrus.FieldLogger) {
	if log == nil {
		log = logrus.StandardLogger().WithField("volume", v.Label())
	}
	v.log = log
}

// BootSector returns the geometry of the volume.
func (v *Volume) BootSector() BootSector {
	return v.bs
}

// Label returns the volume label stored in the boot sector.
func (v *Volume) Label() string {
	return v.bs.VolumeLabel
}

// ClusterCount returns the number of data clusters.
func (v *Volume) ClusterCount() uint32 {
	return v.bs.ClusterCount()
}

// readSector loads the given sector into the scratch buffer and returns it.
func (v *Volume) readSector(sector uint32) ([]byte, error) {
	if err := v.dev.ReadBlock(v.buf, sector); err != nil {
		return nil, checkpoint.Wrapf(err, ErrDeviceIO, "read sector %d", sector)
	}
	return v.buf, nil
}

// writeSector stores the scratch buffer to the given sector.
func (v *Volume) writeSector(sector uint32) error {
	if err := v.dev.WriteBlock(v.buf, sector); err != nil {
		return checkpoint.Wrapf(err, ErrDeviceIO, "write sector %d", sector)
	}
	return nil
}

// zeroCluster overwrites every sector of the cluster with zeros.
func (v *Volume) zeroCluster(cluster uint32) error {
	first, err := v.bs.SectorOfCluster(cluster)
	if err != nil {
		return checkpoint.From(err)
	}

	for i := range v.buf {
		v.buf[i] = 0
	}

	for s := uint32(0); s < uint32(v.bs.SectorsPerCluster); s++ {
		if err := v.writeSector(first + s); err != nil {
			return err
		}
	}
	return nil
}
