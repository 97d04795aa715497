// Package fatfs implements the FAT core (§4.3): formatting, cluster
// allocation, FAT chain maintenance, and directory/file encoding, layered
// on top of the blockdev abstraction.
package fatfs

import (
	"time"

	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/sizeplan"
)

// Volume is a formatted FAT volume in progress: the in-memory allocator and
// FAT tables plus the geometry needed to translate cluster IDs into block
// device offsets.
//
// Grounded on file_systems/fat8/formattingdriver.go's FormatImage shape:
// truncate/zero-fill, write reserved-area sentinel bytes, write FAT copies,
// in that order (§12.2).
type Volume struct {
	Plan           sizeplan.Plan
	Device         blockdev.BlockDevice
	PartitionStart int64

	Allocator *Allocator
	FAT       *FATWriter

	fatOffset1       int64
	rootFixedOffset  int64 // 0 unless FAT12/16
	dataRegionOffset int64
	RootCluster      ClusterID // 0 unless FAT32
}

// FormatImage writes the BPB and, for FAT32, the FSInfo and backup boot
// sectors for plan at the given partition start sector, and prepares the
// in-memory FAT (reserved entries seeded). Nothing is written to the FAT
// regions here; the device's existing zero bytes stand in for them until
// Finalize. The returned Volume is ready for directory/file
// materialization; call Finalize when the tree walk is complete to write
// both FAT copies and, for FAT32, the FSInfo free-cluster count.
func FormatImage(
	dev blockdev.BlockDevice,
	plan sizeplan.Plan,
	partitionStartSector uint32,
	serial uint32,
	when time.Time,
) (*Volume, error) {
	partitionStart := int64(partitionStartSector) * bytesPerSectorFixed
	// fatOffset1 is anchored to the absolute start of the image (sector 0,
	// where the MBR lives), not to partitionStart: the planner's
	// ReservedSectors budget (§4.2 step 5) already lumps the MBR, the PBR,
	// FSInfo, and padding together as one reserved region, so the first FAT
	// must begin exactly ReservedSectors sectors from the very start of the
	// device for the size law (§8) to hold regardless of where within that
	// region the PBR itself sits. The BPB's own ReservedSectors field (built
	// in bpb.go) is shorted by partitionStartSector so a reader computing
	// partitionStartLBA+ReservedSectors lands on this same absolute offset.
	fatOffset1 := int64(sizeplan.ReservedSectors) * bytesPerSectorFixed
	fatBytes := int64(plan.FATSectorsEach) * bytesPerSectorFixed
	fatOffset2 := fatOffset1 + fatBytes

	v := &Volume{
		Plan:           plan,
		Device:         dev,
		PartitionStart: partitionStart,
		fatOffset1:     fatOffset1,
		Allocator:      NewAllocator(plan.TotalClusters),
		FAT:            NewFATWriter(plan.Variant, plan.FATSectorsEach, fatOffset1, fatOffset2),
	}

	if plan.Variant == sizeplan.FAT32 {
		v.dataRegionOffset = fatOffset2 + fatBytes
		rootCluster, err := v.Allocator.AllocateChain(1)
		if err != nil {
			return nil, err
		}
		v.RootCluster = rootCluster
		v.FAT.WriteChain([]ClusterID{rootCluster})
	} else {
		fixedRootBytes := int64(fixedRootEntries) * direntSize
		v.rootFixedOffset = fatOffset2 + fatBytes
		v.dataRegionOffset = v.rootFixedOffset + fixedRootBytes
	}

	pbrBytes, err := MarshalPBR(plan, uint32(partitionStartSector), serial)
	if err != nil {
		return nil, err
	}
	if err := writeSectorPadded(dev, partitionStart, pbrBytes); err != nil {
		return nil, err
	}

	if plan.Variant == sizeplan.FAT32 {
		fsInfoBytes, err := MarshalFSInfo(uint32(v.Allocator.FreeClusters()), uint32(v.Allocator.NextFreeHint()))
		if err != nil {
			return nil, err
		}
		if err := writeSectorPadded(dev, partitionStart+bytesPerSectorFixed, fsInfoBytes); err != nil {
			return nil, err
		}
		// Backup boot sector: an identical copy of the PBR at sector 6,
		// per the resolved FAT32 boot-code Open Question.
		if err := writeSectorPadded(dev, partitionStart+6*bytesPerSectorFixed, pbrBytes); err != nil {
			return nil, err
		}
	}

	return v, nil
}

const direntSize = 32

// writeSectorPadded writes data at offset, zero-padded to a full 512-byte
// sector and terminated with the 0x55AA boot signature at byte 510.
func writeSectorPadded(dev blockdev.BlockDevice, offset int64, data []byte) error {
	sector := make([]byte, bytesPerSectorFixed)
	if len(data) > bytesPerSectorFixed-2 {
		data = data[:bytesPerSectorFixed-2]
	}
	copy(sector, data)
	sector[510] = 0x55
	sector[511] = 0xAA
	return dev.WriteAt(offset, sector)
}

// clusterOffset translates a data-region cluster ID into a byte offset on
// the block device.
func (v *Volume) clusterOffset(id ClusterID) int64 {
	return v.dataRegionOffset + int64(id-firstDataCluster)*int64(v.Plan.ClusterSize)
}

// Finalize flushes both FAT copies and, for FAT32, rewrites the FSInfo
// sector's free-cluster count now that allocation is complete.
func (v *Volume) Finalize() error {
	if v.Plan.Variant == sizeplan.FAT32 {
		fsInfoBytes, err := MarshalFSInfo(uint32(v.Allocator.FreeClusters()), uint32(v.Allocator.NextFreeHint()))
		if err != nil {
			return err
		}
		if err := writeSectorPadded(v.Device, v.PartitionStart+bytesPerSectorFixed, fsInfoBytes); err != nil {
			return err
		}
	}
	if err := v.FAT.Flush(v.Device); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}
	return nil
}
