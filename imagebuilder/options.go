// Package imagebuilder orchestrates a full build: it plans the image size,
// formats the volume, splices caller-supplied boot code into the MBR/PBR,
// walks the manifest tree writing directories and files, and flushes
// everything to the output file (§4.4).
package imagebuilder

import (
	"github.com/dargueta/fatbuilder/clock"
)

// Options configures one build, gathering the CLI flags described in §6/§10
// into a single value the library entry point accepts.
type Options struct {
	ManifestPath string
	OutputPath   string

	ClusterSize uint64
	FreeSpace   uint64

	MBRCode     []byte // first 446 bytes used; shorter blobs are zero-padded
	PBR1216Code []byte // exactly 512 bytes if present
	PBR32Code   []byte // exactly 512 or 1536 bytes if present

	Clock clock.Clock
}

// Result summarizes a completed build, for the CLI's success diagnostic
// (§10).
type Result struct {
	ImageSizeBytes int64
	Variant        string
	FileCount      int
	DirCount       int
}
