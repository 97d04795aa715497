// Package presets supplies named default geometries ("floppy-1440",
// "cf-card-generic", etc.) for the CLI's --media-preset flag, each giving a
// default cluster size and free-space slack that --cluster-size/
// --free-space can still override (§12.4).
//
// Grounded on disks/disks.go's GetPredefinedDiskGeometry/embedded-CSV
// pattern: the cluster-size/slack table here is the faithful, non-dummy use
// of that idea, since the spec's BPB geometry fields (CHS, heads, sectors
// per track) are dummy-but-consistent and have no real preset to select
// from.
package presets

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// MediaPreset is one named default geometry.
type MediaPreset struct {
	Slug            string `csv:"slug"`
	Name            string `csv:"name"`
	ClusterSizeBytes uint64 `csv:"cluster_size_bytes"`
	FreeSpaceBytes   uint64 `csv:"free_space_bytes"`
}

//go:embed media-presets.csv
var rawCSV string

var bySlug map[string]MediaPreset

// Get looks up a preset by slug.
func Get(slug string) (MediaPreset, error) {
	preset, ok := bySlug[slug]
	if !ok {
		return MediaPreset{}, fmt.Errorf("no predefined media preset with slug %q", slug)
	}
	return preset, nil
}

// Slugs returns every known preset slug, for CLI help text.
func Slugs() []string {
	out := make([]string, 0, len(bySlug))
	for slug := range bySlug {
		out = append(out, slug)
	}
	return out
}

func init() {
	bySlug = make(map[string]MediaPreset)
	err := gocsv.UnmarshalToCallback(
		strings.NewReader(rawCSV),
		func(row MediaPreset) error {
			if _, exists := bySlug[row.Slug]; exists {
				return fmt.Errorf("duplicate media preset slug %q", row.Slug)
			}
			bySlug[row.Slug] = row
			return nil
		},
	)
	if err != nil && err != io.EOF {
		panic(err)
	}
}
