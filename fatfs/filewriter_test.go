package fatfs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/dargueta/fatbuilder/fatfs"
	"github.com/dargueta/fatbuilder/sizeplan"
)

// dataClusterPlan builds a FAT12 plan with a real, cluster-addressable data
// region, unlike planFor's empty-tree plans in format_test.go, which compute
// zero data clusters since an empty tree has nothing to store there.
func dataClusterPlan() sizeplan.Plan {
	plan := sizeplan.Plan{
		Variant:        sizeplan.FAT12,
		TotalClusters:  64,
		ClusterSize:    512,
		FATSectorsEach: 1,
	}
	fixedRootBytes := uint64(512) * 32
	plan.ImageSizeBytes = uint64(sizeplan.ReservedSectors)*512 +
		2*uint64(plan.FATSectorsEach)*512 + fixedRootBytes + plan.TotalClusters*plan.ClusterSize
	return plan
}

func TestVolume_WriteFile_StreamsContentIntoDataRegion(t *testing.T) {
	plan := dataClusterPlan()
	dev := blockdev.NewMemDevice(int64(plan.ImageSizeBytes), int64(plan.ClusterSize))
	vol, err := fatfs.FormatImage(dev, plan, 1, 1, time.Now())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "a.bin")
	payload := []byte("hello, fat world")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	first, size, err := vol.WriteFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(len(payload)), size)
	require.NotZero(t, first)
}

func TestVolume_WriteFile_EmptyFileAllocatesNothing(t *testing.T) {
	plan := dataClusterPlan()
	dev := blockdev.NewMemDevice(int64(plan.ImageSizeBytes), int64(plan.ClusterSize))
	vol, err := fatfs.FormatImage(dev, plan, 1, 1, time.Now())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	first, size, err := vol.WriteFile(path)
	require.NoError(t, err)
	require.Zero(t, first)
	require.Zero(t, size)
}

func TestVolume_WriteFile_MultiClusterFileSpansChain(t *testing.T) {
	plan := dataClusterPlan()
	dev := blockdev.NewMemDevice(int64(plan.ImageSizeBytes), int64(plan.ClusterSize))
	vol, err := fatfs.FormatImage(dev, plan, 1, 1, time.Now())
	require.NoError(t, err)

	payload := make([]byte, 1200) // spans 3 clusters at 512 bytes each
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	_, size, err := vol.WriteFile(path)
	require.NoError(t, err)
	require.Equal(t, uint32(len(payload)), size)
}
