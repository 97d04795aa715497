// Package manifest implements the manifest lexer/parser and the in-memory
// directory-tree model it builds, per spec §3 and §4.1.
//
// Grounded on _examples/original_source/FilesystemTree.cpp (parse,
// processLine, createInode, calculateSize) for the exact grammar and tree
// construction rules, and on drivers/common/basedriver/fsobject.go in the
// teacher for the shape of an ordered child collection — adapted here to be
// immutable once parsing finishes, per §3's lifecycle invariant.
package manifest

import (
	"github.com/dargueta/fatbuilder/buildcfg"
)

// Kind distinguishes the two inode variants the manifest can describe.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

// Inode is a single node of the parsed manifest tree. Directories carry an
// ordered list of children; files carry a resolvable host source path.
// Once Parse returns, the tree is never mutated again (§3 Lifecycle).
type Inode struct {
	Name       string
	Kind       Kind
	Attributes buildcfg.Attributes
	SourcePath string // files only

	childOrder []string
	childByKey map[string]*Inode
}

func newDirectory(name string, attrs buildcfg.Attributes) *Inode {
	return &Inode{
		Name:       name,
		Kind:       KindDirectory,
		Attributes: attrs,
		childByKey: make(map[string]*Inode),
	}
}

// Children returns this directory's children in deterministic, stable
// insertion order. Calling it on a file inode returns nil.
func (n *Inode) Children() []*Inode {
	if n.Kind != KindDirectory {
		return nil
	}
	out := make([]*Inode, len(n.childOrder))
	for i, name := range n.childOrder {
		out[i] = n.childByKey[name]
	}
	return out
}

// ChildByName looks up an immediate child by name.
func (n *Inode) ChildByName(name string) (*Inode, bool) {
	child, ok := n.childByKey[name]
	return child, ok
}

func (n *Inode) addChild(child *Inode) error {
	if n.Kind != KindDirectory {
		return buildcfg.ErrNotADirectory.WithMessage(n.Name)
	}
	if _, exists := n.childByKey[child.Name]; exists {
		return buildcfg.ErrDuplicateName.WithMessage(child.Name)
	}
	n.childByKey[child.Name] = child
	n.childOrder = append(n.childOrder, child.Name)
	return nil
}

// Tree is the parsed, finalized manifest: a root directory inode plus the
// operations used to build it.
type Tree struct {
	Root *Inode
}

// NewTree returns an empty tree containing only the (nameless) root
// directory.
func NewTree() *Tree {
	return &Tree{Root: newDirectory("", buildcfg.AttrArchive)}
}
