package imagebuilder

import (
	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/sizeplan"
)

const (
	bpbRegionEnd1216 = 0x3E
	bpbRegionEnd32   = 0x5A
	pbrSize          = 512
	pbrSignatureOff  = 510
)

// splicePBRBootCode overwrites the PBR's jump instruction and boot code
// with the caller-supplied blob, preserving the BPB region Format already
// wrote and the boot signature, per §4.4 step 2 and the resolved FAT32
// Open Question (§9/§12.2): for FAT32 the blob may span 1536 bytes, with
// sector 0 and sector 2 holding boot code and sector 1 (FSInfo) left
// completely untouched.
func splicePBRBootCode(
	dev blockdev.BlockDevice,
	partitionStart int64,
	variant sizeplan.Variant,
	pbrCode []byte,
) error {
	bpbEnd := bpbRegionEnd1216
	if variant == sizeplan.FAT32 {
		bpbEnd = bpbRegionEnd32
	}

	if len(pbrCode) == 0 {
		return nil
	}

	if variant != sizeplan.FAT32 {
		if len(pbrCode) != pbrSize {
			return buildcfg.ErrInvalidBootCode.WithMessage("FAT12/16 PBR boot code must be exactly 512 bytes")
		}
		return spliceOneSector(dev, partitionStart, bpbEnd, pbrCode)
	}

	switch len(pbrCode) {
	case pbrSize:
		if err := spliceOneSector(dev, partitionStart, bpbEnd, pbrCode); err != nil {
			return err
		}
		return spliceOneSector(dev, partitionStart+6*pbrSize, bpbEnd, pbrCode)
	case pbrSize * 3:
		if err := spliceOneSector(dev, partitionStart, bpbEnd, pbrCode[:pbrSize]); err != nil {
			return err
		}
		// Sector 1 is FSInfo; never overwritten by boot code even though it
		// falls inside the nominal 1536-byte span (matches every real
		// FAT32 implementation).
		if err := writeFullSector(dev, partitionStart+2*pbrSize, pbrCode[2*pbrSize:3*pbrSize]); err != nil {
			return err
		}
		// The backup boot sector mirrors sector 0 exactly, per FAT32's
		// required layout.
		return spliceOneSector(dev, partitionStart+6*pbrSize, bpbEnd, pbrCode[:pbrSize])
	default:
		return buildcfg.ErrInvalidBootCode.WithMessage(
			"FAT32 PBR boot code must be exactly 512 or 1536 bytes")
	}
}

// spliceOneSector reads the sector Format wrote, overwrites everything
// outside [3, bpbEnd) and the trailing signature with code, and writes it
// back.
func spliceOneSector(dev blockdev.BlockDevice, offset int64, bpbEnd int, code []byte) error {
	existing := make([]byte, pbrSize)
	if err := dev.ReadAt(offset, existing); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}

	out := make([]byte, pbrSize)
	copy(out, code)
	copy(out[3:bpbEnd], existing[3:bpbEnd])
	out[pbrSignatureOff] = existing[pbrSignatureOff]
	out[pbrSignatureOff+1] = existing[pbrSignatureOff+1]

	return dev.WriteAt(offset, out)
}

func writeFullSector(dev blockdev.BlockDevice, offset int64, code []byte) error {
	out := make([]byte, pbrSize)
	copy(out, code)
	if err := dev.WriteAt(offset, out); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}
	return nil
}
