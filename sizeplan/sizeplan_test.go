package sizeplan_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dargueta/fatbuilder/manifest"
	"github.com/dargueta/fatbuilder/sizeplan"
	"github.com/stretchr/testify/require"
)

func TestDetermineVariant_Thresholds(t *testing.T) {
	require.Equal(t, sizeplan.FAT12, sizeplan.DetermineVariant(1))
	require.Equal(t, sizeplan.FAT12, sizeplan.DetermineVariant(4084))
	require.Equal(t, sizeplan.FAT16, sizeplan.DetermineVariant(4085))
	require.Equal(t, sizeplan.FAT16, sizeplan.DetermineVariant(65524))
	require.Equal(t, sizeplan.FAT32, sizeplan.DetermineVariant(65525))
}

func TestCompute_EmptyTreePlansSomeUsableImage(t *testing.T) {
	tree := manifest.NewTree()
	plan, err := sizeplan.Compute(tree, 4096, 0)
	require.NoError(t, err)
	require.Greater(t, plan.ImageSizeBytes, uint64(0))
	require.Equal(t, uint64(0), plan.ImageSizeBytes%512)
}

func TestCompute_SingleSmallFileFAT12(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(srcPath, []byte("hello world"), 0o644))

	src := "file a.bin " + srcPath + "\n"
	tree, err := manifest.Parse(strings.NewReader(src))
	require.NoError(t, err)

	plan, err := sizeplan.Compute(tree, 512, 0)
	require.NoError(t, err)
	require.Equal(t, sizeplan.FAT12, plan.Variant)
	require.Equal(t, uint64(0), plan.ImageSizeBytes%512)
}

func TestCompute_SlackIncreasesImageSize(t *testing.T) {
	tree := manifest.NewTree()
	small, err := sizeplan.Compute(tree, 4096, 0)
	require.NoError(t, err)

	large, err := sizeplan.Compute(tree, 4096, 10*1024*1024)
	require.NoError(t, err)

	require.Greater(t, large.ImageSizeBytes, small.ImageSizeBytes)
}

func TestCompute_MissingSourceFileFails(t *testing.T) {
	src := "file a.bin /nonexistent/path/a.bin\n"
	tree, err := manifest.Parse(strings.NewReader(src))
	require.NoError(t, err)

	_, err = sizeplan.Compute(tree, 4096, 0)
	require.Error(t, err)
}
