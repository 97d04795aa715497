package blockdev_test

import (
	"path/filepath"
	"testing"

	"github.com/dargueta/fatbuilder/blockdev"
	"github.com/stretchr/testify/require"
)

func TestDevice_CreateSizesFileExactly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")

	dev, err := blockdev.Create(path, 512*10, 512)
	require.NoError(t, err)
	defer dev.Close()

	require.EqualValues(t, 512*10, dev.MediaSize())
}

func TestDevice_WriteThenReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	dev, err := blockdev.Create(path, 4096, 512)
	require.NoError(t, err)
	defer dev.Close()

	payload := []byte("hello, fat world")
	require.NoError(t, dev.WriteAt(1024, payload))

	out := make([]byte, len(payload))
	require.NoError(t, dev.ReadAt(1024, out))
	require.Equal(t, payload, out)
}

func TestDevice_WriteAtPastEndFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	dev, err := blockdev.Create(path, 512, 512)
	require.NoError(t, err)
	defer dev.Close()

	err = dev.WriteAt(500, make([]byte, 100))
	require.Error(t, err)
}

func TestCreate_RejectsNonSectorMultipleSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	_, err := blockdev.Create(path, 513, 512)
	require.Error(t, err)
}

func TestMemDevice_WriteThenReadRoundTrips(t *testing.T) {
	dev := blockdev.NewMemDevice(8192, 512)

	payload := []byte("in-memory image")
	require.NoError(t, dev.WriteAt(2048, payload))

	out := make([]byte, len(payload))
	require.NoError(t, dev.ReadAt(2048, out))
	require.Equal(t, payload, out)
}

func TestMemDevice_BoundsChecked(t *testing.T) {
	dev := blockdev.NewMemDevice(1024, 512)
	require.Error(t, dev.WriteAt(1000, make([]byte, 100)))
	require.Error(t, dev.ReadAt(-1, make([]byte, 10)))
}
