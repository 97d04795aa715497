package presets_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dargueta/fatbuilder/presets"
)

func TestGet_KnownSlugReturnsPreset(t *testing.T) {
	preset, err := presets.Get("floppy-1440")
	require.NoError(t, err)
	require.Equal(t, uint64(512), preset.ClusterSizeBytes)
}

func TestGet_UnknownSlugFails(t *testing.T) {
	_, err := presets.Get("does-not-exist")
	require.Error(t, err)
}

func TestSlugs_IncludesEveryPresetRow(t *testing.T) {
	slugs := presets.Slugs()
	require.Contains(t, slugs, "floppy-1440")
	require.Contains(t, slugs, "cf-card-generic")
	require.Len(t, slugs, 6)
}
