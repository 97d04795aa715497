package imagebuilder

import (
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/fatfs"
	"github.com/dargueta/fatbuilder/manifest"
	"github.com/dargueta/fatbuilder/sizeplan"
)

// partitionStartSector is fixed at 1: the MBR occupies sector 0 and the PBR
// immediately follows, well inside the 72-sector reserved area's budget
// (§6). Real-world tools commonly align to 2048 sectors for flash-media
// performance, but that alignment is orthogonal to this planner's fixed
// 72-sector reserved budget, so it is not used here.
const partitionStartSector = 1

// Build runs a complete image build end to end: parse the manifest, plan
// the size, create and format the block device, splice boot code, walk the
// tree, and flush. It implements §4.4 and the resource-teardown rules of
// §5/§11.1.
func Build(opts Options) (Result, error) {
	manifestFile, err := openManifest(opts.ManifestPath)
	if err != nil {
		return Result{}, err
	}
	defer manifestFile.Close()

	tree, err := manifest.Parse(manifestFile)
	if err != nil {
		return Result{}, err
	}

	plan, err := sizeplan.Compute(tree, opts.ClusterSize, opts.FreeSpace)
	if err != nil {
		return Result{}, err
	}

	dev, err := blockdev.Create(opts.OutputPath, int64(plan.ImageSizeBytes), int64(opts.ClusterSize))
	if err != nil {
		return Result{}, err
	}

	result, buildErr := buildOnDevice(dev, tree, plan, opts)

	var teardownErr *multierror.Error
	if flushErr := dev.Flush(); flushErr != nil {
		teardownErr = multierror.Append(teardownErr, flushErr)
	}
	if closeErr := dev.Close(); closeErr != nil {
		teardownErr = multierror.Append(teardownErr, closeErr)
	}

	if buildErr != nil {
		if teardownErr != nil {
			teardownErr = multierror.Append(teardownErr, buildErr)
			return Result{}, teardownErr.ErrorOrNil()
		}
		return Result{}, buildErr
	}
	if teardownErr != nil {
		return Result{}, teardownErr.ErrorOrNil()
	}

	return result, nil
}

func buildOnDevice(dev *blockdev.Device, tree *manifest.Tree, plan sizeplan.Plan, opts Options) (Result, error) {
	clk := opts.Clock
	now := clk.Now()
	serial := deriveVolumeSerial(now)

	if err := writeMBR(dev, opts.MBRCode, partitionStartSector, uint32(plan.ImageSizeBytes/512), plan.Variant); err != nil {
		return Result{}, err
	}

	vol, err := fatfs.FormatImage(dev, plan, partitionStartSector, serial, now)
	if err != nil {
		return Result{}, err
	}

	pbrCode := opts.PBR1216Code
	if plan.Variant == sizeplan.FAT32 {
		pbrCode = opts.PBR32Code
		if len(pbrCode) == 0 {
			pbrCode = defaultFAT32BootStub()
		}
	}
	if err := splicePBRBootCode(dev, vol.PartitionStart, plan.Variant, pbrCode); err != nil {
		return Result{}, err
	}

	walk, err := materializeTree(vol, tree, now)
	if err != nil {
		return Result{}, err
	}

	if err := vol.Finalize(); err != nil {
		return Result{}, err
	}

	return Result{
		ImageSizeBytes: int64(plan.ImageSizeBytes),
		Variant:        plan.Variant.String(),
		FileCount:      walk.files,
		DirCount:       walk.dirs,
	}, nil
}

// deriveVolumeSerial computes a deterministic volume serial number from the
// build timestamp, folding the Unix time's high and low 32 bits together,
// so repeated builds with the same injected Clock are byte-identical
// (§8 Determinism).
func deriveVolumeSerial(when time.Time) uint32 {
	ts := when.Unix()
	return uint32(ts) ^ uint32(ts>>32)
}

// defaultFAT32BootStub returns a minimal boot sector whose only code is a
// short jump to itself (EB FE) followed by a NOP, so FAT32 images always
// carry boot code even without caller-supplied code, per §9's resolved Open
// Question.
func defaultFAT32BootStub() []byte {
	stub := make([]byte, 512)
	stub[0] = 0xEB
	stub[1] = 0xFE
	stub[2] = 0x90
	return stub
}

// openManifest opens the manifest file for reading, wrapping host I/O
// failures in the HostIO taxonomy per §7.
func openManifest(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, buildcfg.ErrSourceNotFound.WrapError(err)
	}
	return f, nil
}
