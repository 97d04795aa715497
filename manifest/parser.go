package manifest

import (
	"fmt"
	"io"
	"strings"

	"github.com/dargueta/fatbuilder/buildcfg"
)

// Parse reads a manifest from r and returns the finalized directory tree.
//
// Grounded on FilesystemTree.cpp's processLine/createInode: each line names
// a kind ("file"/"dir"), a slash-separated path, an optional source path
// (files only), and an optional attribute-letter set.
func Parse(r io.Reader) (*Tree, error) {
	lines, err := tokenize(r)
	if err != nil {
		return nil, err
	}

	tree := NewTree()
	for _, ln := range lines {
		if err := processLine(tree, ln); err != nil {
			return nil, withLineContext(err, ln.lineNo)
		}
	}
	return tree, nil
}

func withLineContext(err error, lineNo int) error {
	be, ok := err.(buildcfg.BuildError)
	if !ok {
		return fmt.Errorf("manifest line %d: %w", lineNo, err)
	}
	return be.WithMessage(fmt.Sprintf("at manifest line %d", lineNo))
}

func processLine(tree *Tree, ln line) error {
	tokens := ln.tokens
	if len(tokens) == 0 {
		return nil
	}

	var kind Kind
	switch tokens[0] {
	case "file":
		kind = KindFile
	case "dir":
		kind = KindDirectory
	default:
		return buildcfg.ErrUnknownKind.WithMessage(tokens[0])
	}
	tokens = tokens[1:]

	if len(tokens) == 0 {
		return buildcfg.ErrMissingField.WithMessage("no path given")
	}
	path := tokens[0]
	tokens = tokens[1:]

	var sourcePath string
	if kind == KindFile {
		if len(tokens) == 0 {
			return buildcfg.ErrMissingField.WithMessage("file entry requires a source path")
		}
		sourcePath = tokens[0]
		tokens = tokens[1:]
	}

	attrs := buildcfg.AttrArchive
	if len(tokens) != 0 {
		parsed, err := buildcfg.ParseAttributeLetters(tokens[0])
		if err != nil {
			return err
		}
		attrs = parsed
		tokens = tokens[1:]
	}

	return insert(tree, kind, path, sourcePath, attrs)
}

// insert walks from the root following every path component except the
// last, requiring each intermediate component to already exist and be a
// directory, then creates the final component.
func insert(tree *Tree, kind Kind, path, sourcePath string, attrs buildcfg.Attributes) error {
	if path == "" {
		return buildcfg.ErrMissingField.WithMessage("empty path")
	}

	components := strings.Split(path, "/")
	dir := tree.Root

	for _, component := range components[:len(components)-1] {
		if dir.Kind != KindDirectory {
			return buildcfg.ErrNotADirectory.WithMessage(path)
		}
		child, ok := dir.ChildByName(component)
		if !ok {
			return buildcfg.ErrMissingParent.WithMessage(path)
		}
		dir = child
	}

	if dir.Kind != KindDirectory {
		return buildcfg.ErrNotADirectory.WithMessage(path)
	}

	name := components[len(components)-1]
	var node *Inode
	if kind == KindDirectory {
		node = newDirectory(name, attrs)
	} else {
		node = &Inode{
			Name:       name,
			Kind:       KindFile,
			Attributes: attrs,
			SourcePath: sourcePath,
		}
	}

	return dir.addChild(node)
}
