// Package fatfs implements the FAT core: BPB/FSInfo encoding, the bump
// cluster allocator, the FAT chain writer, and the short-name/LFN directory
// entry encoder described in spec §4.3.
//
// Grounded on file_systems/fat/common.go, file_systems/fat/dirent.go, and
// file_systems/fat8/formattingdriver.go in the teacher repo.
package fatfs

import (
	"strings"
	"unicode/utf16"

	"github.com/dargueta/fatbuilder/buildcfg"
)

// invalidShortNameChars are the characters §4.3 says must be replaced with
// '_' when deriving an 8.3 name, plus any non-ASCII byte.
const invalidShortNameChars = "+,;=[] "

// ShortName is an 11-byte on-disk 8.3 name: 8 bytes of base, space-padded,
// followed by 3 bytes of extension, space-padded.
type ShortName [11]byte

// String renders the short name the conventional "BASE.EXT" way, with
// trailing spaces trimmed and a bare base when there's no extension.
func (s ShortName) String() string {
	base := strings.TrimRight(string(s[0:8]), " ")
	ext := strings.TrimRight(string(s[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// splitBaseExt splits a manifest name into base/extension on the last '.'.
// A name with no dot has an empty extension; a name whose only dot is its
// first character (a dotfile such as ".profile") is treated as having no
// extension, and a name ending in a dot gets an empty extension.
func splitBaseExt(name string) (base, ext string) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// isExact8Dot3 reports whether name is already a valid, unambiguous 8.3
// name: uppercase, no invalid characters, at most one dot, base <= 8 bytes,
// extension <= 3 bytes, and pure ASCII.
func isExact8Dot3(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.Count(name, ".") > 1 {
		return false
	}
	base, ext := splitBaseExt(name)
	if len(base) == 0 || len(base) > 8 || len(ext) > 3 {
		return false
	}
	for _, ch := range name {
		if ch > 127 || ch < 0x20 {
			return false
		}
		if ch == ' ' || strings.ContainsRune(invalidShortNameChars, ch) {
			return false
		}
		if ch >= 'a' && ch <= 'z' {
			return false
		}
	}
	return true
}

func sanitizeComponent(s string, maxLen int) string {
	upper := strings.ToUpper(s)
	var b strings.Builder
	for _, ch := range upper {
		switch {
		case ch > 127:
			b.WriteByte('_')
		// s is already a single base or extension component with the
		// separator dot split off by splitBaseExt, so any '.' reaching here
		// is embedded and must be replaced like the other invalid characters.
		// It isn't folded into invalidShortNameChars because that constant
		// is also checked against the full "BASE.EXT" name in isExact8Dot3,
		// where the single separator dot is legitimate.
		case ch == '.' || strings.ContainsRune(invalidShortNameChars, ch):
			b.WriteByte('_')
		default:
			b.WriteByte(byte(ch))
		}
	}
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

// padName packs base/ext into the fixed 8+3 on-disk layout, space-padded.
func padName(base, ext string) ShortName {
	var sn ShortName
	for i := range sn {
		sn[i] = ' '
	}
	copy(sn[0:8], base)
	copy(sn[8:11], ext)
	return sn
}

// nameTable tracks short names already used within one directory, so
// collisions can be resolved with the numeric-tail convention (§4.3).
type nameTable struct {
	used map[string]bool
}

func newNameTable() *nameTable {
	return &nameTable{used: make(map[string]bool)}
}

// DeriveShortName computes the on-disk 8.3 name for a manifest entry name,
// resolving collisions against every other short name already placed in the
// same directory. It also reports whether the original name round-trips
// exactly as an 8.3 name (in which case no LFN entries are needed).
func (t *nameTable) DeriveShortName(name string) (ShortName, bool, error) {
	if isExact8Dot3(name) {
		base, ext := splitBaseExt(name)
		sn := padName(base, ext)
		key := sn.String()
		if t.used[key] {
			// An exact 8.3 name can itself collide with a generated tail
			// name from an earlier long name; fall through to the numeric
			// tail path below.
		} else {
			t.used[key] = true
			return sn, true, nil
		}
	}

	base, ext := splitBaseExt(name)
	sanitizedBase := sanitizeComponent(base, 8)
	sanitizedExt := sanitizeComponent(ext, 3)
	if sanitizedBase == "" {
		sanitizedBase = "_"
	}

	// Anything that reaches this point needs LFN entries, so it always gets
	// a numeric tail starting at ~1 even on the very first candidate: real
	// FAT drivers never hand out a bare truncated name next to its LFN,
	// since a later exact-8.3 name could then collide with it silently.
	for attempt := 1; attempt <= 999999; attempt++ {
		tail := "~" + itoa(attempt)
		maxBase := 8 - len(tail)
		if maxBase < 1 {
			continue
		}
		candidateBase := sanitizedBase
		if len(candidateBase) > maxBase {
			candidateBase = candidateBase[:maxBase]
		}
		candidateBase += tail

		sn := padName(candidateBase, sanitizedExt)
		key := sn.String()
		if !t.used[key] {
			t.used[key] = true
			return sn, false, nil
		}
	}

	return ShortName{}, false, buildcfg.ErrTailCollisionExhausted.WithMessage(name)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits [7]byte
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// ShortNameChecksum implements §4.3's checksum: rotate-right-8 accumulation
// over all 11 raw short-name bytes.
func ShortNameChecksum(sn ShortName) byte {
	var sum byte
	for _, b := range sn {
		sum = rotateRight8(sum, 1) + b
	}
	return sum
}

func rotateRight8(b byte, n uint) byte {
	n &= 7
	return (b >> n) | (b << (8 - n))
}

// utf16Length returns the number of UTF-16 code units name encodes to,
// used both by the LFN encoder and by the size planner's directory-entry
// slot counting so the two stay consistent.
func utf16Length(name string) int {
	return len(utf16.Encode([]rune(name)))
}

// DirectorySlotsFor returns how many 32-byte directory-entry slots name
// needs: 1 for the short entry alone, or 1 + ceil(utf16len/13) if LFN
// fragments are required.
func DirectorySlotsFor(name string) int {
	if isExact8Dot3(name) {
		return 1
	}
	n := utf16Length(name)
	fragments := (n + 12) / 13 // ceil(n/13), and a 0-length name still needs 1 fragment
	if fragments == 0 {
		fragments = 1
	}
	return 1 + fragments
}
