package fatfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPackTimestamp_EncodesFields(t *testing.T) {
	when := time.Date(2026, time.March, 5, 13, 45, 30, 0, time.UTC)
	date, clock := PackTimestamp(when)

	require.Equal(t, uint16((2026-1980)<<9|3<<5|5), date)
	require.Equal(t, uint16(13<<11|45<<5|15), clock)
}

func TestPackTimestamp_ClampsPreEpochYears(t *testing.T) {
	when := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	date, _ := PackTimestamp(when)
	require.Equal(t, uint16(1<<5|1), date)
}

func TestEncodeEntry_ExactShortNameHasNoLFNFragments(t *testing.T) {
	table := newNameTable()
	short, exact, err := table.DeriveShortName("KERNEL.BIN")
	require.NoError(t, err)
	require.True(t, exact)

	slots := EncodeEntry("KERNEL.BIN", short, 0x20, 5, 1024, exact, time.Now())
	require.Len(t, slots, 1)
	require.Len(t, slots[0], 32)
}

func TestEncodeEntry_LongNameEmitsLFNFragmentsBeforeShortEntry(t *testing.T) {
	table := newNameTable()
	name := "verylongname.txt"
	short, exact, err := table.DeriveShortName(name)
	require.NoError(t, err)
	require.False(t, exact)

	slots := EncodeEntry(name, short, 0x20, 5, 1024, exact, time.Now())
	require.Equal(t, SlotsFor(name), len(slots))
	require.Greater(t, len(slots), 1)

	// Every slot but the last is an LFN fragment (attribute byte at offset
	// 11 equals 0x0F); the last is the short entry.
	for _, s := range slots[:len(slots)-1] {
		require.Equal(t, byte(attrLFN), s[11])
	}
	require.NotEqual(t, byte(attrLFN), slots[len(slots)-1][11])

	// The final fragment in on-disk order carries the lowest sequence
	// number (1); the first fragment written carries the "last logical"
	// flag ORed into its sequence number.
	require.Equal(t, byte(1), slots[len(slots)-2][0])
	require.NotZero(t, slots[0][0]&lfnLastLogicalFlag)
}

// TestEncodeEntry_NameExactlyFillsLastFragment covers a name whose UTF-16
// length is an exact multiple of 13: it must not get a spurious extra
// fragment for a NUL terminator that has nowhere to go (matches real VFAT,
// and must agree with DirectorySlotsFor's ceil(n/13) count).
func TestEncodeEntry_NameExactlyFillsLastFragment(t *testing.T) {
	table := newNameTable()
	name := "verylongname.with.dots.txt" // 26 UTF-16 units, 2*13 exactly
	require.Equal(t, 26, utf16Length(name))

	short, exact, err := table.DeriveShortName(name)
	require.NoError(t, err)
	require.False(t, exact)

	slots := EncodeEntry(name, short, 0x20, 5, 1024, exact, time.Now())
	require.Equal(t, 3, len(slots)) // 2 LFN fragments + 1 short entry
	require.Equal(t, SlotsFor(name), len(slots))
}
