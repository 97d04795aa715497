package imagebuilder_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatbuilder/clock"
	"github.com/dargueta/fatbuilder/imagebuilder"
)

func writeManifest(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBuild_MinimalTreeProducesSectorAlignedImage(t *testing.T) {
	dir := t.TempDir()
	kernelPath := filepath.Join(dir, "kernel.bin")
	require.NoError(t, os.WriteFile(kernelPath, []byte("bootable kernel stub"), 0o644))

	manifestBody := "dir boot\nfile boot/kernel.bin " + kernelPath + "\n"
	manifestPath := writeManifest(t, dir, manifestBody)
	outputPath := filepath.Join(dir, "image.bin")

	result, err := imagebuilder.Build(imagebuilder.Options{
		ManifestPath: manifestPath,
		OutputPath:   outputPath,
		ClusterSize:  512,
		FreeSpace:    0,
		Clock:        clock.Fixed(time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.FileCount)
	require.Equal(t, 1, result.DirCount)
	require.Zero(t, result.ImageSizeBytes%512)

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	require.Equal(t, result.ImageSizeBytes, info.Size())
}

func TestBuild_IsDeterministicForFixedClock(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "a.bin")
	require.NoError(t, os.WriteFile(srcPath, []byte("payload bytes"), 0o644))

	manifestPath := writeManifest(t, dir, "file a.bin "+srcPath+"\n")
	when := time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)

	out1 := filepath.Join(dir, "one.bin")
	out2 := filepath.Join(dir, "two.bin")

	_, err := imagebuilder.Build(imagebuilder.Options{
		ManifestPath: manifestPath, OutputPath: out1, ClusterSize: 512, Clock: clock.Fixed(when),
	})
	require.NoError(t, err)
	_, err = imagebuilder.Build(imagebuilder.Options{
		ManifestPath: manifestPath, OutputPath: out2, ClusterSize: 512, Clock: clock.Fixed(when),
	})
	require.NoError(t, err)

	b1, err := os.ReadFile(out1)
	require.NoError(t, err)
	b2, err := os.ReadFile(out2)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestBuild_MissingSourceFileFails(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeManifest(t, dir, "file a.bin /nonexistent/source\n")

	_, err := imagebuilder.Build(imagebuilder.Options{
		ManifestPath: manifestPath,
		OutputPath:   filepath.Join(dir, "image.bin"),
		ClusterSize:  512,
		Clock:        clock.Real(),
	})
	require.Error(t, err)
}
