package fatfs

import (
	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/dargueta/fatbuilder/sizeplan"
)

// FATWriter maintains two mirrored in-memory FAT copies and flushes them to
// the block device in lockstep, per §4.3's "maintain two FAT copies in
// lockstep" responsibility and the FAT mirror law (§8).
type FATWriter struct {
	variant    sizeplan.Variant
	table      []byte // one copy; the second is a byte-identical write of the same buffer
	entrySize  int    // 2 for FAT12/16 (packed specially for FAT12), 4 for FAT32
	fatOffset1 int64
	fatOffset2 int64
}

// NewFATWriter allocates the in-memory FAT buffer sized for sectorsPerFAT
// sectors and seeds entries 0 and 1 with the reserved values §4.3 requires.
func NewFATWriter(variant sizeplan.Variant, sectorsPerFAT uint64, fatOffset1, fatOffset2 int64) *FATWriter {
	entrySize := 4
	if variant != sizeplan.FAT32 {
		entrySize = 2
	}

	w := &FATWriter{
		variant:    variant,
		table:      make([]byte, sectorsPerFAT*512),
		entrySize:  entrySize,
		fatOffset1: fatOffset1,
		fatOffset2: fatOffset2,
	}
	w.seedReservedEntries()
	return w
}

func (w *FATWriter) seedReservedEntries() {
	switch w.variant {
	case sizeplan.FAT12:
		// Packed: entry 0 low byte = media descriptor, high nibble all 1s;
		// entry 1 = 0xFFF (clean shutdown bits set by default, no dirty
		// volume flag to clear).
		w.table[0] = mediaDescriptor
		w.table[1] = 0xFF
		w.table[2] = 0xFF
	case sizeplan.FAT16:
		w.set16(0, 0xFF00|mediaDescriptor)
		w.set16(1, 0xFFFF)
	default:
		w.set32(0, 0xFFFFFF00|mediaDescriptor)
		w.set32(1, 0xFFFFFFFF)
	}
}

func (w *FATWriter) set16(index uint64, value uint16) {
	off := index * 2
	w.table[off] = byte(value)
	w.table[off+1] = byte(value >> 8)
}

func (w *FATWriter) set32(index uint64, value uint32) {
	off := index * 4
	w.table[off] = byte(value)
	w.table[off+1] = byte(value >> 8)
	w.table[off+2] = byte(value >> 16)
	w.table[off+3] = byte(value >> 24)
}

func (w *FATWriter) set12(index uint64, value uint16) {
	off := (index * 3) / 2
	if index%2 == 0 {
		w.table[off] = byte(value)
		w.table[off+1] = (w.table[off+1] & 0xF0) | byte(value>>8)
	} else {
		w.table[off] = (w.table[off] & 0x0F) | byte(value<<4)
		w.table[off+1] = byte(value >> 4)
	}
}

// eocFor returns the end-of-chain marker for the writer's variant.
func (w *FATWriter) eocFor() uint32 {
	switch w.variant {
	case sizeplan.FAT12:
		return eocMarker12
	case sizeplan.FAT16:
		return eocMarker16
	default:
		return eocMarker32
	}
}

// WriteChain links clusters[0] -> clusters[1] -> ... -> EOC.
func (w *FATWriter) WriteChain(clusters []ClusterID) {
	eoc := w.eocFor()
	for i, cluster := range clusters {
		var next uint32
		if i == len(clusters)-1 {
			next = eoc
		} else {
			next = uint32(clusters[i+1])
		}
		switch w.variant {
		case sizeplan.FAT12:
			w.set12(uint64(cluster), uint16(next))
		case sizeplan.FAT16:
			w.set16(uint64(cluster), uint16(next))
		default:
			w.set32(uint64(cluster), next)
		}
	}
}

// LinkNext overwrites prev's FAT entry (previously EOC) to point at next,
// used when an extendable directory or file chain grows by one cluster.
func (w *FATWriter) LinkNext(prev, next ClusterID) {
	switch w.variant {
	case sizeplan.FAT12:
		w.set12(uint64(prev), uint16(next))
	case sizeplan.FAT16:
		w.set16(uint64(prev), uint16(next))
	default:
		w.set32(uint64(prev), uint32(next))
	}
}

// Flush writes both mirrored FAT copies to the block device.
func (w *FATWriter) Flush(dev blockdev.BlockDevice) error {
	if err := dev.WriteAt(w.fatOffset1, w.table); err != nil {
		return err
	}
	return dev.WriteAt(w.fatOffset2, w.table)
}
