package fatfs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/dargueta/fatbuilder/fatfs"
	"github.com/dargueta/fatbuilder/sizeplan"
)

func TestDirectory_PlaceChild_RootFAT12FixedArea(t *testing.T) {
	plan := planFor(t, 512, 0)
	dev := blockdev.NewMemDevice(int64(plan.ImageSizeBytes), int64(plan.ClusterSize))
	vol, err := fatfs.FormatImage(dev, plan, 1, 1, time.Now())
	require.NoError(t, err)

	root := fatfs.NewRootDirectory(vol)
	require.NoError(t, root.PlaceChild("KERNEL.BIN", 0x20, 2, 512, time.Now()))
}

func TestDirectory_PlaceChild_FillsFixedRootReturnsErr(t *testing.T) {
	plan := planFor(t, 512, 0)
	dev := blockdev.NewMemDevice(int64(plan.ImageSizeBytes), int64(plan.ClusterSize))
	vol, err := fatfs.FormatImage(dev, plan, 1, 1, time.Now())
	require.NoError(t, err)

	root := fatfs.NewRootDirectory(vol)
	var lastErr error
	for i := 0; i < 513; i++ {
		name := "F" + string(rune('A'+i%26)) + ".BIN"
		lastErr = root.PlaceChild(name, 0x20, 2, 0, time.Now())
		if lastErr != nil {
			break
		}
	}
	require.Error(t, lastErr)
}

func TestDirectory_NewSubdirectory_ExtendsChainAcrossClusters(t *testing.T) {
	plan := sizeplan.Plan{
		Variant:        sizeplan.FAT32,
		TotalClusters:  100,
		ClusterSize:    512,
		FATSectorsEach: 10,
	}
	plan.ImageSizeBytes = uint64(sizeplan.ReservedSectors)*512 + 2*uint64(plan.FATSectorsEach)*512 + plan.TotalClusters*plan.ClusterSize

	dev := blockdev.NewMemDevice(int64(plan.ImageSizeBytes), int64(plan.ClusterSize))
	vol, err := fatfs.FormatImage(dev, plan, 1, 1, time.Now())
	require.NoError(t, err)

	sub, err := fatfs.NewSubdirectory(vol)
	require.NoError(t, err)
	require.NotZero(t, sub.FirstCluster)

	entriesPerCluster := int(plan.ClusterSize) / 32
	for i := 0; i < entriesPerCluster+1; i++ {
		name := "F" + string(rune('A'+i%26)) + string(rune('A'+(i/26)%26)) + ".BIN"
		require.NoError(t, sub.PlaceChild(name, 0x20, 2, 0, time.Now()))
	}
}
