package fatfs

import (
	"time"

	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/sizeplan"
)

// Directory is a handle onto one directory's entry storage: either the
// fixed-size FAT12/16 root area, or an extendable cluster chain, per
// §4.3's "Directory encoding" and "allocate another cluster and link it"
// rules.
type Directory struct {
	volume *Volume
	names  *nameTable

	fixedOffset   int64 // > 0 only for the FAT12/16 root
	fixedCapacity int   // entry count limit for the fixed root, else 0

	clusters       []ClusterID
	entriesPerCluster int
	usedEntries       int

	// FirstCluster is this directory's own first-cluster value for the
	// dirent that refers to it (0 for the FAT12/16 root, which has none).
	FirstCluster ClusterID
}

// NewRootDirectory returns a handle to the volume's root directory: the
// fixed 512-entry area on FAT12/16, or the single cluster Format already
// allocated on FAT32.
func NewRootDirectory(v *Volume) *Directory {
	d := &Directory{volume: v, names: newNameTable()}
	if v.Plan.Variant == sizeplan.FAT32 {
		d.clusters = []ClusterID{v.RootCluster}
		d.entriesPerCluster = int(v.Plan.ClusterSize) / direntSize
		d.FirstCluster = v.RootCluster
	} else {
		d.fixedOffset = v.rootFixedOffset
		d.fixedCapacity = fixedRootEntries
	}
	return d
}

// NewSubdirectory allocates a single starting cluster for a new,
// chain-extendable directory.
func NewSubdirectory(v *Volume) (*Directory, error) {
	cluster, err := v.Allocator.AllocateChain(1)
	if err != nil {
		return nil, err
	}
	v.FAT.WriteChain([]ClusterID{cluster})

	return &Directory{
		volume:            v,
		names:             newNameTable(),
		clusters:          []ClusterID{cluster},
		entriesPerCluster: int(v.Plan.ClusterSize) / direntSize,
		FirstCluster:      cluster,
	}, nil
}

// PlaceChild derives a short name (resolving collisions within this
// directory), encodes the short entry plus any LFN fragments, and writes
// them into the next free slot(s), extending the cluster chain if needed.
func (d *Directory) PlaceChild(
	name string,
	attrs uint8,
	firstCluster ClusterID,
	fileSize uint32,
	when time.Time,
) error {
	short, isExact, err := d.names.DeriveShortName(name)
	if err != nil {
		return err
	}

	slots := EncodeEntry(name, short, attrs, firstCluster, fileSize, isExact, when)
	return d.writeSlots(slots)
}

func (d *Directory) writeSlots(slots [][]byte) error {
	for _, slot := range slots {
		if err := d.writeOneSlot(slot); err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) writeOneSlot(slot []byte) error {
	if d.fixedCapacity > 0 {
		if err := validateFit(d.usedEntries, 1, d.fixedCapacity); err != nil {
			return err
		}
		offset := d.fixedOffset + int64(d.usedEntries)*direntSize
		if err := d.volume.Device.WriteAt(offset, slot); err != nil {
			return buildcfg.ErrImageIO.WrapError(err)
		}
		d.usedEntries++
		return nil
	}

	clusterIndex := d.usedEntries / d.entriesPerCluster
	if clusterIndex >= len(d.clusters) {
		next, err := d.volume.Allocator.AllocateChain(1)
		if err != nil {
			return err
		}
		d.volume.FAT.WriteChain([]ClusterID{next})
		d.volume.FAT.LinkNext(d.clusters[len(d.clusters)-1], next)
		d.clusters = append(d.clusters, next)
	}

	clusterID := d.clusters[clusterIndex]
	within := d.usedEntries % d.entriesPerCluster
	offset := d.volume.clusterOffset(clusterID) + int64(within)*direntSize
	if err := d.volume.Device.WriteAt(offset, slot); err != nil {
		return buildcfg.ErrImageIO.WrapError(err)
	}
	d.usedEntries++
	return nil
}
