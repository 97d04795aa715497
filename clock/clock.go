// Package clock provides the timestamp injection seam used throughout the
// build so that a fixed wall-clock value can be substituted for reproducible
// output, per spec §5 and §9.
package clock

import "time"

// Clock returns the current time for the purposes of a single build. All FAT
// directory-entry timestamps and the volume serial number are derived from a
// single call to Now() made once at the start of the build, so every entry
// created during that build shares the same creation/modification timestamp.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns a Clock backed by the host's wall clock.
func Real() Clock { return realClock{} }

// Fixed returns a Clock that always reports t, for reproducible builds and
// for tests.
func Fixed(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }
