package fatfs

import (
	"io"
	"os"

	"github.com/dargueta/fatbuilder/buildcfg"
)

// streamChunkSize is the buffered copy size used when materializing a file
// onto the image, per §4.3's "buffered chunks (>= 8 KiB)" requirement.
const streamChunkSize = 32 * 1024

// WriteFile allocates a cluster chain sized for sourcePath's current length
// and streams its bytes into the volume's data region, returning the
// chain's first cluster and the file's size for the caller's directory
// entry.
func (v *Volume) WriteFile(sourcePath string) (ClusterID, uint32, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return 0, 0, buildcfg.ErrSourceNotFound.WrapError(err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return 0, 0, buildcfg.ErrSourceNotFound.WrapError(err)
	}
	size := info.Size()

	clusterCount := uint64(0)
	if size > 0 {
		clusterCount = (uint64(size) + v.Plan.ClusterSize - 1) / v.Plan.ClusterSize
	} else {
		// An empty file still needs a place to point its (zero) size at;
		// it is valid for a short directory entry to carry first_cluster=0
		// in that case, so no allocation happens.
		return 0, 0, nil
	}

	chain := make([]ClusterID, clusterCount)
	first, err := v.Allocator.AllocateChain(clusterCount)
	if err != nil {
		return 0, 0, err
	}
	for i := range chain {
		chain[i] = ClusterID(uint64(first) + uint64(i))
	}
	v.FAT.WriteChain(chain)

	buf := make([]byte, streamChunkSize)
	var written int64
	for _, cluster := range chain {
		clusterOffset := v.clusterOffset(cluster)
		remainingInCluster := v.Plan.ClusterSize
		for remainingInCluster > 0 {
			toRead := uint64(len(buf))
			if toRead > remainingInCluster {
				toRead = remainingInCluster
			}
			n, readErr := io.ReadFull(src, buf[:toRead])
			if n > 0 {
				if err := v.Device.WriteAt(clusterOffset, buf[:n]); err != nil {
					return 0, 0, buildcfg.ErrImageIO.WrapError(err)
				}
				clusterOffset += int64(n)
				remainingInCluster -= uint64(n)
				written += int64(n)
			}
			if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
				if written != size {
					return 0, 0, buildcfg.ErrSourceTruncated.WithMessage(sourcePath)
				}
				return first, uint32(size), nil
			}
			if readErr != nil {
				return 0, 0, buildcfg.ErrSourceShortRead.WrapError(readErr)
			}
		}
	}

	if written != size {
		return 0, 0, buildcfg.ErrSourceTruncated.WithMessage(sourcePath)
	}
	return first, uint32(size), nil
}
