package fatfs

import (
	"time"
	"unicode/utf16"

	"github.com/dargueta/fatbuilder/buildcfg"
)

const (
	attrLFN = 0x0F

	lfnLastLogicalFlag = 0x40
	deletedMarker      = 0xE5
)

// RawShortDirent is the on-disk 32-byte short directory entry, laid out the
// way file_systems/fat/dirent.go's RawDirent reads it, here built for
// writing rather than parsing.
type RawShortDirent struct {
	Name             [8]byte
	Extension        [3]byte
	Attributes       uint8
	NTReserved       uint8
	CreateTimeTenths uint8
	CreateTime       uint16
	CreateDate       uint16
	LastAccessDate   uint16
	FirstClusterHigh uint16
	WriteTime        uint16
	WriteDate        uint16
	FirstClusterLow  uint16
	FileSize         uint32
}

// Bytes serializes the entry in the fixed field order above.
func (d RawShortDirent) Bytes() []byte {
	out := make([]byte, 32)
	copy(out[0:8], d.Name[:])
	copy(out[8:11], d.Extension[:])
	out[11] = d.Attributes
	out[12] = d.NTReserved
	out[13] = d.CreateTimeTenths
	putU16(out[14:16], d.CreateTime)
	putU16(out[16:18], d.CreateDate)
	putU16(out[18:20], d.LastAccessDate)
	putU16(out[20:22], d.FirstClusterHigh)
	putU16(out[22:24], d.WriteTime)
	putU16(out[24:26], d.WriteDate)
	putU16(out[26:28], d.FirstClusterLow)
	putU32(out[28:32], d.FileSize)
	return out
}

func putU16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// rawLFNEntry is one 32-byte long-filename fragment.
type rawLFNEntry struct {
	sequence        uint8
	name1           [5]uint16
	attributes      uint8
	entryType       uint8
	checksum        uint8
	name2           [6]uint16
	firstClusterLow uint16
	name3           [2]uint16
}

func (e rawLFNEntry) Bytes() []byte {
	out := make([]byte, 32)
	out[0] = e.sequence
	for i, u := range e.name1 {
		putU16(out[1+2*i:3+2*i], u)
	}
	out[11] = e.attributes
	out[12] = e.entryType
	out[13] = e.checksum
	for i, u := range e.name2 {
		putU16(out[14+2*i:16+2*i], u)
	}
	putU16(out[26:28], e.firstClusterLow)
	for i, u := range e.name3 {
		putU16(out[28+2*i:30+2*i], u)
	}
	return out
}

// PackTimestamp implements §4.3's date/time packing: the same moment is
// used for creation, access, and modification so builds within the same
// second are stable.
func PackTimestamp(t time.Time) (date uint16, clock uint16) {
	year := t.Year()
	if year < 1980 {
		year = 1980
	}
	date = uint16((year-1980)<<9) | uint16(t.Month())<<5 | uint16(t.Day())
	clock = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	return date, clock
}

// EncodeEntry builds the full run of directory-entry bytes (LFN fragments,
// if needed, followed by the short entry) for one child, per §4.3.
//
// Grounded on file_systems/fat/dirent.go's RawDirent field layout;
// UTF-16LE transcoding uses the standard library per §11.2.
func EncodeEntry(
	name string,
	short ShortName,
	attrs uint8,
	firstCluster ClusterID,
	fileSize uint32,
	isExactShort bool,
	when time.Time,
) [][]byte {
	date, clock := PackTimestamp(when)
	shortEntry := RawShortDirent{
		Attributes:       attrs,
		CreateTime:       clock,
		CreateDate:       date,
		LastAccessDate:   date,
		WriteTime:        clock,
		WriteDate:        date,
		FirstClusterHigh: uint16(firstCluster >> 16),
		FirstClusterLow:  uint16(firstCluster),
		FileSize:         fileSize,
	}
	copy(shortEntry.Name[:], short[0:8])
	copy(shortEntry.Extension[:], short[8:11])

	entries := [][]byte{shortEntry.Bytes()}
	if isExactShort {
		return entries
	}

	checksum := ShortNameChecksum(short)
	fragments := lfnFragments(name, checksum)
	// LFN fragments are written in reverse sequence order (last fragment,
	// i.e. highest sequence number, first), immediately before the short
	// entry.
	out := make([][]byte, 0, len(fragments)+1)
	for i := len(fragments) - 1; i >= 0; i-- {
		out = append(out, fragments[i])
	}
	out = append(out, shortEntry.Bytes())
	return out
}

// lfnFragments splits name into ceil(len/13) 13-UTF16-unit fragments. If the
// name doesn't exactly fill the last fragment, it's NUL-terminated and the
// remainder padded with 0xFFFF; a name whose length is an exact multiple of
// 13 gets no terminator at all, matching real VFAT. Returns fragments in
// ascending sequence order (1-based), with the final entry's sequence number
// ORed with 0x40.
func lfnFragments(name string, checksum byte) [][]byte {
	units := utf16.Encode([]rune(name))
	padded := make([]uint16, len(units))
	copy(padded, units)
	if len(padded) == 0 || len(padded)%13 != 0 {
		padded = append(padded, 0x0000)
		for len(padded)%13 != 0 {
			padded = append(padded, 0xFFFF)
		}
	}

	fragmentCount := len(padded) / 13
	out := make([][]byte, fragmentCount)
	for i := 0; i < fragmentCount; i++ {
		chunk := padded[i*13 : (i+1)*13]
		entry := rawLFNEntry{
			sequence:   uint8(i + 1),
			attributes: attrLFN,
			checksum:   checksum,
		}
		copy(entry.name1[:], chunk[0:5])
		copy(entry.name2[:], chunk[5:11])
		copy(entry.name3[:], chunk[11:13])
		if i == fragmentCount-1 {
			entry.sequence |= lfnLastLogicalFlag
		}
		out[i] = entry.Bytes()
	}
	return out
}

// SlotsFor returns the number of 32-byte slots EncodeEntry will produce for
// name, matching DirectorySlotsFor exactly (the size planner depends on
// this staying in lockstep with the real encoder).
func SlotsFor(name string) int {
	return DirectorySlotsFor(name)
}

// validateFit returns RootDirFull if placing adding more slots in a
// fixed-capacity root (FAT12/16) would exceed its 512-entry limit.
func validateFit(used, adding, capacity int) error {
	if capacity > 0 && used+adding > capacity {
		return buildcfg.ErrRootDirFull.WithMessage("fixed root directory entry limit exceeded")
	}
	return nil
}
