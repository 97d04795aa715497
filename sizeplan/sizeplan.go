// Package sizeplan computes, a priori, the minimum image size and FAT
// variant for a manifest tree, per spec §4.2.
//
// Grounded on _examples/original_source/FilesystemTree.cpp's calculateSize
// and file_systems/fat/common.go's DetermineFATVersion in the teacher.
package sizeplan

import (
	"fmt"
	"os"

	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/fatfs"
	"github.com/dargueta/fatbuilder/manifest"
)

// Variant is the chosen FAT flavor, selected purely from cluster count
// (§3).
type Variant int

const (
	FAT12 Variant = 12
	FAT16 Variant = 16
	FAT32 Variant = 32
)

func (v Variant) String() string {
	switch v {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	default:
		return fmt.Sprintf("FAT?(%d)", int(v))
	}
}

// entryBitWidth returns the FAT entry width in bits: 12 for FAT12 (entries
// packed two per three bytes), 16 for FAT16, and 32 for FAT32.
func (v Variant) entryBitWidth() int {
	switch v {
	case FAT12:
		return 12
	case FAT16:
		return 16
	default:
		return 32
	}
}

// DetermineVariant chooses FAT12/16/32 purely from the cluster count, per
// the thresholds in §3 (taken from Microsoft's FAT spec, reproduced in the
// teacher's file_systems/fat/common.go DetermineFATVersion).
func DetermineVariant(totalClusters uint64) Variant {
	switch {
	case totalClusters < 4085:
		return FAT12
	case totalClusters < 65525:
		return FAT16
	default:
		return FAT32
	}
}

const (
	// ReservedSectors covers the MBR, PBR, FSInfo (FAT32), and padding up to
	// the first FAT, per §4.2 step 5.
	ReservedSectors = 72
	bytesPerSector  = 512
	direntSize      = 32
	// fixedRootEntries is the fixed FAT12/16 root directory capacity.
	fixedRootEntries = 512
)

// Plan is the result of a size computation: the chosen variant and the
// final image size in bytes.
type Plan struct {
	Variant         Variant
	ImageSizeBytes  uint64
	TotalClusters   uint64
	ClusterSize     uint64
	FATSectorsEach  uint64
}

// ceilDiv rounds a/b up to the nearest multiple.
func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func ceilToMultiple(value, multiple uint64) uint64 {
	return ceilDiv(value, multiple) * multiple
}

// direntsForDirectory counts how many 32-byte slots a directory's children
// require, including one LFN fragment per 13 UTF-16 code units beyond the
// short-name-only case. A name is assumed to need LFN entries unless it is
// already in upper-case 8.3 form; see fatfs/shortname.go for the exact rule
// this must stay consistent with.
func direntsForDirectory(dir *manifest.Inode) uint64 {
	var count uint64
	for _, child := range dir.Children() {
		count += uint64(fatfs.DirectorySlotsFor(child.Name))
	}
	return count
}

// sourceFileSize looks up the host size of a file entry's source, the way
// the original Inode::calculateSize stats the backing file before rounding
// it up to a cluster multiple.
func sourceFileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, buildcfg.ErrSourceNotFound.WrapError(err)
	}
	if info.IsDir() {
		return 0, buildcfg.ErrSourceNotFound.WithMessage(path + " is a directory")
	}
	return uint64(info.Size()), nil
}

// payloadBytes recursively sums the cluster-rounded occupancy of a subtree,
// per §4.2 step 1-2.
func payloadBytes(node *manifest.Inode, clusterSize uint64, isRoot bool) (uint64, error) {
	switch node.Kind {
	case manifest.KindFile:
		size, err := sourceFileSize(node.SourcePath)
		if err != nil {
			return 0, err
		}
		return ceilToMultiple(size, clusterSize), nil

	default: // KindDirectory
		var sum uint64
		for _, child := range node.Children() {
			childBytes, err := payloadBytes(child, clusterSize, false)
			if err != nil {
				return 0, err
			}
			sum += childBytes
		}

		entries := direntsForDirectory(node)
		var minEntries uint64
		if isRoot {
			minEntries = fixedRootEntries
		} else {
			minEntries = uint64(len(node.Children()))
		}
		if entries < minEntries {
			entries = minEntries
		}
		dirBytes := ceilToMultiple(entries*direntSize, clusterSize)

		// The root directory's own fixed-size area only exists as a real
		// occupant of the data region on FAT32 (a normal cluster chain); on
		// FAT12/16 it lives in its own reserved area and must not be double
		// counted against the data region here. The caller corrects for
		// this after the variant is known; see Compute.
		return sum + dirBytes, nil
	}
}

// Compute implements §4.2 end to end: it sums payload bytes assuming a
// FAT32-style (data-region) root, derives a tentative cluster count to pick
// the variant, and then — if the chosen variant turns out to be FAT12/16,
// whose root is NOT part of the data region — subtracts the root's
// data-region occupancy back out and adds the fixed 512-entry root area as
// flat reserved sectors instead, matching §4.2's root_minimum distinction.
func Compute(tree *manifest.Tree, clusterSize uint64, slackBytes uint64) (Plan, error) {
	rootDataBytes, err := payloadBytes(tree.Root, clusterSize, true)
	if err != nil {
		return Plan{}, err
	}

	slack := ceilToMultiple(slackBytes, clusterSize)
	payload := rootDataBytes + slack
	clusters := payload / clusterSize

	variant := DetermineVariant(clusters)

	var fatEntryBytes uint64
	switch variant {
	case FAT12:
		fatEntryBytes = 2 // packed below; ceilDiv handles the 1.5-byte rounding
	case FAT16:
		fatEntryBytes = 2
	default:
		fatEntryBytes = 4
	}

	var totalSectors uint64
	if variant == FAT32 {
		totalSectors = computeTotalSectors(clusters, clusterSize, fatEntryBytes, variant)
	} else {
		// The fixed root is not part of the cluster-addressed data region;
		// recompute payload without its data-region bytes and add the fixed
		// root area (in sectors) directly to the reserved area instead.
		rootEntries := uint64(len(tree.Root.Children()))
		rootMinEntries := direntsForDirectory(tree.Root)
		if rootEntries < rootMinEntries {
			rootEntries = rootMinEntries
		}
		if rootEntries < fixedRootEntries {
			rootEntries = fixedRootEntries
		}
		rootDirBytesInDataRegion := ceilToMultiple(rootEntries*direntSize, clusterSize)

		nonRootPayload := rootDataBytes - rootDirBytesInDataRegion + slack
		clusters = nonRootPayload / clusterSize
		// Variant choice is stable because the fixed root is always at
		// least as large as its data-region equivalent would have been, so
		// removing it cannot push the cluster count across a higher
		// threshold. Re-derive to stay honest regardless.
		variant = DetermineVariant(clusters)
		if variant == FAT32 {
			fatEntryBytes = 4
			totalSectors = computeTotalSectors(clusters, clusterSize, fatEntryBytes, variant)
		} else {
			fixedRootSectors := ceilDiv(fixedRootEntries*direntSize, bytesPerSector)
			totalSectors = clusters*(clusterSize/bytesPerSector) +
				2*fatSectorsPerCopy(clusters, fatEntryBytes, variant) +
				fixedRootSectors + ReservedSectors
		}
	}

	return Plan{
		Variant:        variant,
		ImageSizeBytes: totalSectors * bytesPerSector,
		TotalClusters:  clusters,
		ClusterSize:    clusterSize,
		FATSectorsEach: fatSectorsPerCopy(clusters, fatEntryBytes, variant),
	}, nil
}

func computeTotalSectors(clusters, clusterSize, fatEntryBytes uint64, variant Variant) uint64 {
	fatSectors := fatSectorsPerCopy(clusters, fatEntryBytes, variant)
	return clusters*(clusterSize/bytesPerSector) + 2*fatSectors + ReservedSectors
}

// fatSectorsPerCopy implements §4.2 step 4, with FAT12's 12-bit (1.5-byte)
// packed entries handled exactly (two entries per three bytes).
func fatSectorsPerCopy(clusters uint64, fatEntryBytes uint64, variant Variant) uint64 {
	var fatBytes uint64
	if variant == FAT12 {
		fatBytes = ceilDiv(clusters*3, 2)
	} else {
		fatBytes = clusters * fatEntryBytes
	}
	return ceilDiv(fatBytes, bytesPerSector)
}
