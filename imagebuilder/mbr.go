package imagebuilder

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"

	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/sizeplan"
)

const (
	mbrBootCodeSize     = 446
	mbrPartitionEntries = 4
	partitionEntrySize  = 16
	mbrSignatureOffset  = 510
)

// partitionEntry is one 16-byte MBR partition table slot.
type partitionEntry struct {
	BootIndicator uint8
	StartCHS      [3]byte
	PartitionType uint8
	EndCHS        [3]byte
	StartLBA      uint32
	SizeSectors   uint32
}

const dummyCHS = 0xFE // a CHS value real BIOSes ignore once LBA addressing is in play

func partitionTypeFor(variant sizeplan.Variant) uint8 {
	if variant == sizeplan.FAT32 {
		return 0x0C // FAT32, LBA
	}
	return 0x0E // FAT16, LBA
}

// writeMBR assembles sector 0: the caller's boot code (or zeros), a single
// bootable partition entry describing the volume, and the 0x55AA
// signature, then writes it in one shot (§4.4 step 1).
//
// Grounded on file_systems/unixv1/format.go's use of bytewriter.New to
// assemble a sector in memory before a single WriteDiskBlocks call.
func writeMBR(
	dev blockdev.BlockDevice,
	mbrCode []byte,
	partitionStartSector uint32,
	totalSectors uint32,
	variant sizeplan.Variant,
) error {
	sector := make([]byte, 512)
	writer := bytewriter.New(sector)

	// The blob is zero-padded if shorter than 446 bytes and truncated if
	// longer.
	bootCode := make([]byte, mbrBootCodeSize)
	copy(bootCode, mbrCode)
	if _, err := writer.Write(bootCode); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}

	entry := partitionEntry{
		BootIndicator: 0x80,
		StartCHS:      [3]byte{dummyCHS, dummyCHS, dummyCHS},
		PartitionType: partitionTypeFor(variant),
		EndCHS:        [3]byte{dummyCHS, dummyCHS, dummyCHS},
		StartLBA:      partitionStartSector,
		SizeSectors:   totalSectors - partitionStartSector,
	}
	if err := binary.Write(writer, binary.LittleEndian, &entry); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}

	// The remaining three partition entries are left zeroed.
	zeroEntries := make([]byte, partitionEntrySize*(mbrPartitionEntries-1))
	if _, err := writer.Write(zeroEntries); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}

	sector[mbrSignatureOffset] = 0x55
	sector[mbrSignatureOffset+1] = 0xAA

	return dev.WriteAt(0, sector)
}
