package sdfat

import (
	"github.com/aligator/sdfat/checkpoint"
	"github.com/sirupsen/logrus"
)

const (
	// firstDataCluster is the cluster which starts at RootDirSector. Cluster 0 and 1 do not address data.
	firstDataCluster = 2

	// fatEntrySize is the size of one FAT32 slot in bytes.
	fatEntrySize = 4
)

// fatEntry is the value of one FAT slot.
// Only the lower 28 bits are used, the upper 4 bits are reserved.
type fatEntry uint32

const (
	fatEntryMask    fatEntry = 0x0FFFFFFF
	fatEntryBad     fatEntry = 0x0FFFFFF7
	fatEntryEOCMin  fatEntry = 0x0FFFFFF8
	fatEntryEOC     fatEntry = 0x0FFFFFFF // Written to terminate a chain.
	fatEntryFree    fatEntry = 0
	fatReservedBits fatEntry = ^fatEntryMask
)

func (e fatEntry) value() fatEntry {
	return e & fatEntryMask
}

// IsFree reports an unused cluster.
func (e fatEntry) IsFree() bool {
	return e.value() == fatEntryFree
}

// IsEOF reports the last cluster of a chain.
func (e fatEntry) IsEOF() bool {
	return e.value() >= fatEntryEOCMin
}

// IsBad reports a cluster marked as defective.
func (e fatEntry) IsBad() bool {
	return e.value() == fatEntryBad
}

// fatSlot returns the sector and in-sector offset of the slot of cluster inside of the given FAT mirror.
func (v *Volume) fatSlot(mirror uint8, cluster uint32) (uint32, int, error) {
	bps := uint32(v.bs.BytesPerSector)
	byteOffset := uint64(cluster) * fatEntrySize

	if byteOffset/uint64(bps) >= uint64(v.bs.FATSize) {
		return 0, 0, checkpoint.Wrapf(ErrInvalidCluster, nil, "cluster %d is outside of the FAT", cluster)
	}

	sector := uint32(v.bs.ReservedSectors) + uint32(mirror)*v.bs.FATSize + uint32(byteOffset/uint64(bps))
	return sector, int(byteOffset % uint64(bps)), nil
}

// isDataCluster reports whether cluster addresses a cluster of the data region.
func (v *Volume) isDataCluster(cluster uint32) bool {
	return cluster >= firstDataCluster && cluster < v.ClusterCount()+firstDataCluster
}

func (v *Volume) readEntry(mirror uint8, cluster uint32) (fatEntry, error) {
	sector, offset, err := v.fatSlot(mirror, cluster)
	if err != nil {
		return 0, err
	}

	buf, err := v.readSector(sector)
	if err != nil {
		return 0, err
	}

	value, err := field{width: fatEntrySize}.uint32(buf, offset)
	if err != nil {
		return 0, checkpoint.From(err)
	}
	return fatEntry(value), nil
}

// setEntry writes value into the slot of cluster in one mirror.
// The reserved upper bits of the slot are kept as they are.
func (v *Volume) setEntry(mirror uint8, cluster uint32, value fatEntry) error {
	sector, offset, err := v.fatSlot(mirror, cluster)
	if err != nil {
		return err
	}

	buf, err := v.readSector(sector)
	if err != nil {
		return err
	}

	slot := field{width: fatEntrySize}
	old, err := slot.uint32(buf, offset)
	if err != nil {
		return checkpoint.From(err)
	}

	newValue := fatEntry(old)&fatReservedBits | value.value()
	if err := slot.put(buf, offset, uint32(newValue)); err != nil {
		return checkpoint.From(err)
	}

	return v.writeSector(sector)
}

// NextCluster returns the cluster following the given one in its chain.
// The reserved upper 4 bits of the slot are masked out, so an end of chain is always >= 0x0FFFFFF8.
func (v *Volume) NextCluster(cluster uint32) (uint32, error) {
	if cluster < firstDataCluster {
		return 0, checkpoint.Wrapf(ErrInvalidCluster, nil, "cluster %d", cluster)
	}

	entry, err := v.readEntry(0, cluster)
	if err != nil {
		return 0, err
	}

	return uint32(entry.value()), nil
}

// LinkCluster appends to to the chain ending in from and terminates the chain at to.
// Both slots are written in every FAT mirror.
//
// This is not atomic: if writing fails, some mirrors may already contain the new link while
// others do not. The error is returned in that case and the mirrors are left as they are.
func (v *Volume) LinkCluster(from, to uint32) error {
	if !v.isDataCluster(from) || !v.isDataCluster(to) {
		return checkpoint.Wrapf(ErrInvalidCluster, nil, "link %d -> %d", from, to)
	}

	for mirror := uint8(0); mirror < v.bs.NumFATs; mirror++ {
		if err := v.setEntry(mirror, from, fatEntry(to)); err != nil {
			v.warnPartialUpdate(err, mirror, from)
			return err
		}

		if err := v.setEntry(mirror, to, fatEntryEOC); err != nil {
			v.warnPartialUpdate(err, mirror, to)
			return err
		}
	}

	v.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("linked cluster")
	return nil
}

// TerminateChain marks cluster as the last cluster of its chain in every FAT mirror.
// It is used to start a new chain for a file which has no cluster yet.
func (v *Volume) TerminateChain(cluster uint32) error {
	if !v.isDataCluster(cluster) {
		return checkpoint.Wrapf(ErrInvalidCluster, nil, "cluster %d", cluster)
	}

	for mirror := uint8(0); mirror < v.bs.NumFATs; mirror++ {
		if err := v.setEntry(mirror, cluster, fatEntryEOC); err != nil {
			v.warnPartialUpdate(err, mirror, cluster)
			return err
		}
	}

	v.log.WithField("cluster", cluster).Debug("terminated chain")
	return nil
}

func (v *Volume) warnPartialUpdate(err error, mirror uint8, cluster uint32) {
	if mirror == 0 && v.bs.NumFATs == 1 {
		return
	}

	v.log.WithError(err).WithFields(logrus.Fields{
		"mirror":  mirror,
		"cluster": cluster,
	}).Warn("FAT mirrors may be inconsistent")
}

// scanFAT calls fn for every data cluster slot of the first FAT, in ascending order, until fn returns false.
func (v *Volume) scanFAT(fn func(cluster uint32, entry fatEntry) bool) error {
	perSector := uint32(v.bs.BytesPerSector) / fatEntrySize
	limit := v.ClusterCount() + firstDataCluster
	slot := field{width: fatEntrySize}

	for s := uint32(0); s < v.bs.FATSize; s++ {
		first := s * perSector
		if first >= limit {
			break
		}

		buf, err := v.readSector(uint32(v.bs.ReservedSectors) + s)
		if err != nil {
			return err
		}

		for i := uint32(0); i < perSector; i++ {
			cluster := first + i
			if cluster < firstDataCluster {
				continue
			}
			if cluster >= limit {
				return nil
			}

			value, err := slot.uint32(buf, int(i*fatEntrySize))
			if err != nil {
				return checkpoint.From(err)
			}

			if !fn(cluster, fatEntry(value)) {
				return nil
			}
		}
	}

	return nil
}

// FindFreeCluster searches the first FAT for an unused cluster.
// It returns ErrVolumeFull if there is none.
func (v *Volume) FindFreeCluster() (uint32, error) {
	var found uint32

	err := v.scanFAT(func(cluster uint32, entry fatEntry) bool {
		if entry.IsFree() {
			found = cluster
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	if found == 0 {
		return 0, checkpoint.From(ErrVolumeFull)
	}

	return found, nil
}

// FreeClusters counts all unused clusters. It has to read the whole FAT.
func (v *Volume) FreeClusters() (uint32, error) {
	var free uint32

	err := v.scanFAT(func(_ uint32, entry fatEntry) bool {
		if entry.IsFree() {
			free++
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	return free, nil
}
