package manifest_test

import (
	"strings"
	"testing"

	"github.com/dargueta/fatbuilder/buildcfg"
	"github.com/dargueta/fatbuilder/manifest"
	"github.com/stretchr/testify/require"
)

func TestParse_Minimal(t *testing.T) {
	src := "dir foo\nfile foo/a.txt data/a.bin\n"
	tree, err := manifest.Parse(strings.NewReader(src))
	require.NoError(t, err)

	foo, ok := tree.Root.ChildByName("foo")
	require.True(t, ok)
	require.Equal(t, manifest.KindDirectory, foo.Kind)

	a, ok := foo.ChildByName("a.txt")
	require.True(t, ok)
	require.Equal(t, manifest.KindFile, a.Kind)
	require.Equal(t, "data/a.bin", a.SourcePath)
	require.Equal(t, buildcfg.AttrArchive, a.Attributes)
}

func TestParse_ExampleFromSpec(t *testing.T) {
	src := "dir  boot                    sh\n" +
		"file boot/kernel.bin   build/kernel.bin\n" +
		"dir  data\n" +
		"file data/readme.txt   assets/readme.txt  r\n"

	tree, err := manifest.Parse(strings.NewReader(src))
	require.NoError(t, err)

	boot, ok := tree.Root.ChildByName("boot")
	require.True(t, ok)
	require.Equal(t, buildcfg.AttrSystem|buildcfg.AttrHidden, boot.Attributes)

	kernel, ok := boot.ChildByName("kernel.bin")
	require.True(t, ok)
	require.Equal(t, "build/kernel.bin", kernel.SourcePath)

	data, ok := tree.Root.ChildByName("data")
	require.True(t, ok)
	readme, ok := data.ChildByName("readme.txt")
	require.True(t, ok)
	require.Equal(t, buildcfg.AttrReadOnly, readme.Attributes)
}

func TestParse_QuotedNameWithEscape(t *testing.T) {
	src := `file "a\"b.txt" src/x.bin` + "\n"
	tree, err := manifest.Parse(strings.NewReader(src))
	require.NoError(t, err)

	_, ok := tree.Root.ChildByName(`a"b.txt`)
	require.True(t, ok)
}

func TestParse_CommentLine(t *testing.T) {
	src := "; this is a comment\ndir foo\n"
	tree, err := manifest.Parse(strings.NewReader(src))
	require.NoError(t, err)

	_, ok := tree.Root.ChildByName("foo")
	require.True(t, ok)
}

func TestParse_DuplicateEntryFails(t *testing.T) {
	src := "file a.txt src/a.bin\nfile a.txt src/b.bin\n"
	_, err := manifest.Parse(strings.NewReader(src))
	require.Error(t, err)
	require.ErrorIs(t, err, buildcfg.ErrDuplicateName)
}

func TestParse_MissingParentFails(t *testing.T) {
	src := "file missing/a.txt src/a.bin\n"
	_, err := manifest.Parse(strings.NewReader(src))
	require.Error(t, err)
	require.ErrorIs(t, err, buildcfg.ErrMissingParent)
}

func TestParse_NotADirectoryFails(t *testing.T) {
	src := "file a.txt src/a.bin\nfile a.txt/b.txt src/b.bin\n"
	_, err := manifest.Parse(strings.NewReader(src))
	require.Error(t, err)
	require.ErrorIs(t, err, buildcfg.ErrNotADirectory)
}

func TestParse_UnterminatedStringFails(t *testing.T) {
	src := `file "unterminated src/a.bin` + "\n"
	_, err := manifest.Parse(strings.NewReader(src))
	require.Error(t, err)
	require.ErrorIs(t, err, buildcfg.ErrUnterminatedString)
}

func TestParse_MissingTrailingNewlineFails(t *testing.T) {
	src := "file a.txt src/a.bin"
	_, err := manifest.Parse(strings.NewReader(src))
	require.Error(t, err)
	require.ErrorIs(t, err, buildcfg.ErrMissingNewline)
}

func TestParse_UnknownKindFails(t *testing.T) {
	src := "symlink a.txt\n"
	_, err := manifest.Parse(strings.NewReader(src))
	require.Error(t, err)
	require.ErrorIs(t, err, buildcfg.ErrUnknownKind)
}

func TestParse_UnknownAttributeFails(t *testing.T) {
	src := "file a.txt src/a.bin z\n"
	_, err := manifest.Parse(strings.NewReader(src))
	require.Error(t, err)
	require.ErrorIs(t, err, buildcfg.ErrUnknownAttribute)
}

func TestParse_EmptyManifestOk(t *testing.T) {
	tree, err := manifest.Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, tree.Root.Children())
}
