package imagebuilder

import (
	"time"

	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/fatfs"
	"github.com/dargueta/fatbuilder/manifest"
)

// walkResult accumulates the file and directory counts Result reports.
type walkResult struct {
	files int
	dirs  int
}

// materializeTree walks tree depth-first in deterministic child order
// (§4.4 step 3), creating directories and streaming file contents.
func materializeTree(vol *fatfs.Volume, tree *manifest.Tree, when time.Time) (walkResult, error) {
	root := fatfs.NewRootDirectory(vol)
	result := walkResult{}
	if err := materializeChildren(vol, root, tree.Root, when, &result); err != nil {
		return result, err
	}
	return result, nil
}

func materializeChildren(
	vol *fatfs.Volume,
	dir *fatfs.Directory,
	node *manifest.Inode,
	when time.Time,
	result *walkResult,
) error {
	for _, child := range node.Children() {
		attrs := childAttributes(child)

		switch child.Kind {
		case manifest.KindDirectory:
			childDir, err := fatfs.NewSubdirectory(vol)
			if err != nil {
				return err
			}
			if err := dir.PlaceChild(child.Name, attrs, childDir.FirstCluster, 0, when); err != nil {
				return err
			}
			result.dirs++
			if err := materializeChildren(vol, childDir, child, when, result); err != nil {
				return err
			}

		case manifest.KindFile:
			firstCluster, size, err := vol.WriteFile(child.SourcePath)
			if err != nil {
				return err
			}
			if err := dir.PlaceChild(child.Name, attrs, firstCluster, size, when); err != nil {
				return err
			}
			result.files++
		}
	}
	return nil
}

// childAttributes applies the automatic bits (Directory for directory
// kinds, Archive for files) then overlays the manifest's user-visible mask,
// per §4.3's "Attribute set" rule.
func childAttributes(node *manifest.Inode) uint8 {
	var attrs uint8
	if node.Kind == manifest.KindDirectory {
		attrs |= uint8(buildcfg.AttrDirectory)
	} else {
		attrs |= uint8(buildcfg.AttrArchive)
	}
	attrs |= uint8(node.Attributes & buildcfg.AttrUserMask)
	return attrs
}
