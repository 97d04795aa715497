package fatfs

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/sizeplan"
)

// defaultEncoding is the byte order used for every on-disk structure in this
// package; FAT is little-endian throughout (§6).
var defaultEncoding = binary.LittleEndian

const (
	bytesPerSectorFixed = 512
	mediaDescriptor     = 0xF8
	driveNumberFixed    = 0x80
)

// CommonBPB is the portion of the BIOS Parameter Block shared by every FAT
// variant, laid out exactly as it appears on disk starting at byte offset 3
// of the PBR.
//
// Grounded on file_systems/fat/common.go's RawFATBootSectorWithBPB, replacing
// its hand-rolled binary.Read offsets with go-restruct struct tags per
// §11.3.
type CommonBPB struct {
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT16   uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
}

// FAT1216Extension follows CommonBPB on FAT12/FAT16 volumes.
type FAT1216Extension struct {
	DriveNumber    uint8
	Reserved1      uint8
	BootSignature  uint8
	VolumeSerial   uint32
	VolumeLabel    [11]byte
	FileSystemType [8]byte
}

// FAT32Extension follows CommonBPB on FAT32 volumes.
type FAT32Extension struct {
	SectorsPerFAT32  uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfoSector     uint16
	BackupBootSector uint16
	Reserved         [12]byte
	DriveNumber      uint8
	Reserved1        uint8
	BootSignature    uint8
	VolumeSerial     uint32
	VolumeLabel      [11]byte
	FileSystemType   [8]byte
}

// FSInfo is the FAT32 FSInfo sector (§4.3).
type FSInfo struct {
	LeadSignature   uint32 // "RRaA"
	Reserved1       [480]byte
	StructSignature uint32 // "rrAa"
	FreeCount       uint32
	NextFree        uint32
	Reserved2       [12]byte
	TrailSignature  uint32 // 0xAA550000
}

const (
	fsInfoLeadSignature   = 0x41615252 // "RRaA" little-endian
	fsInfoStructSignature = 0x61417272 // "rrAa" little-endian
	fsInfoTrailSignature  = 0xAA550000
)

// volumeLabelBytes returns the fixed 11-byte space-padded "NO NAME" label
// §4.3 specifies as the default.
func volumeLabelBytes() [11]byte {
	var out [11]byte
	copy(out[:], "NO NAME    ")
	return out
}

func fsTypeBytes(variant sizeplan.Variant) [8]byte {
	var out [8]byte
	switch variant {
	case sizeplan.FAT12:
		copy(out[:], "FAT12   ")
	case sizeplan.FAT16:
		copy(out[:], "FAT16   ")
	default:
		copy(out[:], "FAT32   ")
	}
	return out
}

// buildCommonBPB fills in the fields shared by every variant, per §4.3's
// format description: jump + OEM name live in the PBR's first 3 bytes and
// are written by the caller (imagebuilder splices the boot blob over them),
// so this only covers the structured BPB fields starting at offset 3.
//
// ReservedSectors is measured from hiddenSectors (the partition's own start
// LBA), not from the start of the device: a reader locates FAT#1 at
// partitionStartLBA+ReservedSectors, and FormatImage places FAT#1 at
// sizeplan.ReservedSectors sectors from the device start, so the field here
// must be shorted by hiddenSectors to keep the two anchors in agreement.
func buildCommonBPB(plan sizeplan.Plan, hiddenSectors uint32, serial uint32) CommonBPB {
	bpb := CommonBPB{
		BytesPerSector:    bytesPerSectorFixed,
		SectorsPerCluster: uint8(plan.ClusterSize / bytesPerSectorFixed),
		ReservedSectors:   uint16(sizeplan.ReservedSectors - int(hiddenSectors)),
		NumFATs:           2,
		Media:             mediaDescriptor,
		SectorsPerTrack:   63,
		NumHeads:          16,
		HiddenSectors:     hiddenSectors,
	}

	if plan.Variant == sizeplan.FAT32 {
		bpb.RootEntryCount = 0
	} else {
		bpb.RootEntryCount = fixedRootEntries
	}

	totalSectors := plan.ImageSizeBytes / bytesPerSectorFixed
	if totalSectors <= 0xFFFF {
		bpb.TotalSectors16 = uint16(totalSectors)
	} else {
		bpb.TotalSectors32 = uint32(totalSectors)
	}

	if plan.Variant != sizeplan.FAT32 {
		bpb.SectorsPerFAT16 = uint16(plan.FATSectorsEach)
	}

	return bpb
}

// fixedRootEntries mirrors sizeplan.fixedRootEntries; kept local since the
// constant isn't exported across the package boundary.
const fixedRootEntries = 512

// MarshalPBR serializes the full BPB (common + variant extension) for
// placement at byte offset 3 of the PBR sector. The caller is responsible
// for the leading 3-byte jump instruction and the boot code that follows.
func MarshalPBR(plan sizeplan.Plan, hiddenSectors uint32, serial uint32) ([]byte, error) {
	bpb := buildCommonBPB(plan, hiddenSectors, serial)
	bpb.OEMName = [8]byte{'F', 'A', 'T', 'B', 'L', 'D', 'R', ' '}

	commonBytes, err := restruct.Pack(defaultEncoding, &bpb)
	if err != nil {
		return nil, buildcfg.ErrInvalidBootCode.WrapError(err)
	}

	var extBytes []byte
	if plan.Variant == sizeplan.FAT32 {
		ext := FAT32Extension{
			SectorsPerFAT32:  uint32(plan.FATSectorsEach),
			RootCluster:      2,
			FSInfoSector:     1,
			BackupBootSector: 6,
			DriveNumber:      driveNumberFixed,
			BootSignature:    0x29,
			VolumeSerial:     serial,
			VolumeLabel:      volumeLabelBytes(),
			FileSystemType:   fsTypeBytes(plan.Variant),
		}
		extBytes, err = restruct.Pack(defaultEncoding, &ext)
	} else {
		ext := FAT1216Extension{
			DriveNumber:    driveNumberFixed,
			BootSignature:  0x29,
			VolumeSerial:   serial,
			VolumeLabel:    volumeLabelBytes(),
			FileSystemType: fsTypeBytes(plan.Variant),
		}
		extBytes, err = restruct.Pack(defaultEncoding, &ext)
	}
	if err != nil {
		return nil, buildcfg.ErrInvalidBootCode.WrapError(err)
	}

	out := make([]byte, 0, 3+len(commonBytes)+len(extBytes))
	out = append(out, 0xEB, 0xFE, 0x90) // placeholder jump, overwritten by boot-code splice
	out = append(out, commonBytes...)
	out = append(out, extBytes...)
	return out, nil
}

// MarshalFSInfo serializes the FAT32 FSInfo sector.
func MarshalFSInfo(freeClusters, nextFree uint32) ([]byte, error) {
	info := FSInfo{
		LeadSignature:   fsInfoLeadSignature,
		StructSignature: fsInfoStructSignature,
		FreeCount:       freeClusters,
		NextFree:        nextFree,
		TrailSignature:  fsInfoTrailSignature,
	}
	out, err := restruct.Pack(defaultEncoding, &info)
	if err != nil {
		return nil, buildcfg.ErrInvalidBootCode.WrapError(err)
	}
	return out, nil
}
