package fatfs

import (
	"github.com/boljen/go-bitmap"

	"github.com/dargueta/fatbuilder/buildcfg"
)

// ClusterID identifies a cluster in the data region; values 0 and 1 are
// reserved (never allocated), data clusters start at 2 (§4.3).
type ClusterID uint32

const (
	firstDataCluster ClusterID = 2
	eocMarker32                = 0x0FFFFFF8
	eocMarker16                = 0xFFF8
	eocMarker12                = 0xFF8
	badCluster32               = 0x0FFFFFF7
)

// Allocator is a bump allocator over the data region: clusters are claimed
// strictly in increasing order and never freed, since an image is built in
// one pass with no deletions (§4.3 Allocation).
//
// Grounded on drivers/common/allocatormap.go's bitmap-backed Allocator; the
// bitmap is retained (rather than a bare counter) so the free-cluster count
// for the FAT32 FSInfo sector (§12.2) comes from counting unset bits instead
// of a second threaded field.
type Allocator struct {
	bits         bitmap.Bitmap
	totalClusters uint64 // count of usable data clusters, NOT counting 0/1
	limit        uint64  // one past the highest allocatable cluster ID
	nextFree     ClusterID
}

// NewAllocator creates an allocator over totalClusters data clusters
// (§4.2's cluster count, which excludes the two reserved FAT entries),
// with clusters 0 and 1 pre-marked allocated since they aren't real data
// clusters and data cluster IDs start at firstDataCluster.
func NewAllocator(totalClusters uint64) *Allocator {
	limit := uint64(firstDataCluster) + totalClusters
	a := &Allocator{
		bits:          bitmap.New(int(limit)),
		totalClusters: totalClusters,
		limit:         limit,
		nextFree:      firstDataCluster,
	}
	a.bits.Set(0, true)
	a.bits.Set(1, true)
	return a
}

// AllocateChain claims n consecutive clusters starting at the allocator's
// current bump pointer and returns the first cluster ID.
func (a *Allocator) AllocateChain(n uint64) (ClusterID, error) {
	if n == 0 {
		return 0, buildcfg.ErrNoSpace.WithMessage("cannot allocate a zero-length chain")
	}
	start := a.nextFree
	if uint64(start)+n > a.limit {
		return 0, buildcfg.ErrNoSpace.WithMessage("data region exhausted")
	}
	for i := uint64(0); i < n; i++ {
		a.bits.Set(int(start)+int(i), true)
	}
	a.nextFree = ClusterID(uint64(start) + n)
	return start, nil
}

// FreeClusters returns the number of clusters not yet claimed, for the
// FAT32 FSInfo sector.
func (a *Allocator) FreeClusters() uint64 {
	var free uint64
	for i := uint64(0); i < a.limit; i++ {
		if !a.bits.Get(int(i)) {
			free++
		}
	}
	return free
}

// NextFreeHint returns the allocator's current bump pointer, used as the
// FAT32 FSInfo "next free cluster" hint.
func (a *Allocator) NextFreeHint() ClusterID {
	return a.nextFree
}
