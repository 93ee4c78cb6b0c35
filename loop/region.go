// SPDX-License-Identifier: EPL-2.0

package loop

// Zone classifies a position relative to a loop region.
type Zone int

const (
	// ZoneOutside is any position not inside [Start, End). Playback that
	// has not reached the loop yet is here, as is anything the wrap rules
	// have not folded back in.
	ZoneOutside Zone = iota
	// ZoneNormal is [Start, End-crossfade): frames pass through unchanged.
	ZoneNormal
	// ZoneCrossfade is [End-crossfade, End): the tail is blended with the
	// cached head.
	ZoneCrossfade
)

func (z Zone) String() string {
	switch z {
	case ZoneNormal:
		return "normal"
	case ZoneCrossfade:
		return "crossfade"
	default:
		return "outside"
	}
}

// Region is the half-open frame range [Start, End) that repeats.
type Region struct {
	Start int64
	End   int64
}

// Valid reports whether the region can loop: 0 <= Start < End.
func (r Region) Valid() bool {
	return r.Start >= 0 && r.End > r.Start
}

// Len is End-Start.
func (r Region) Len() int64 { return r.End - r.Start }

// Contains reports whether pos lies in [Start, End).
func (r Region) Contains(pos int64) bool {
	return pos >= r.Start && pos < r.End
}

// ClampCrossfade limits a requested crossfade length to [0, Len()/2] so the
// crossfade window never overlaps the head it blends into.
func (r Region) ClampCrossfade(n int64) int64 {
	if !r.Valid() || n <= 0 {
		return 0
	}
	return min(n, r.Len()/2)
}

// CrossfadeStart is the first frame of the crossfade zone.
func (r Region) CrossfadeStart(xfade int64) int64 { return r.End - xfade }

// EffectiveLen is the distance between successive crossfade zones once the
// head is skipped on every pass after the first.
func (r Region) EffectiveLen(xfade int64) int64 { return r.Len() - xfade }

// Zone classifies pos for a crossfade of xfade frames.
func (r Region) Zone(pos, xfade int64) Zone {
	switch {
	case !r.Contains(pos):
		return ZoneOutside
	case xfade > 0 && pos >= r.CrossfadeStart(xfade):
		return ZoneCrossfade
	default:
		return ZoneNormal
	}
}

// Wrap folds any position into [Start, End). The result is recomputed from
// the raw position, so a cursor that ran arbitrarily far ahead lands where
// continuous looping would have put it.
//
// With a crossfade, positions at or past End fold over the effective length
// and land after the head, because each pass after the first starts at
// Start+xfade. Everything else out of range uses plain modular folding. Both
// rules finish with a range check rather than trusting the sign of %.
func (r Region) Wrap(pos, xfade int64) int64 {
	if r.Contains(pos) || !r.Valid() {
		return pos
	}

	if xfade > 0 && pos >= r.End {
		headEnd := r.Start + xfade
		w := headEnd + (pos-r.End)%r.EffectiveLen(xfade)
		if w < headEnd || w >= r.End {
			return r.Start
		}
		return w
	}

	w := r.Start + (pos-r.Start)%r.Len()
	if w < r.Start || w >= r.End {
		return r.Start
	}
	return w
}

// Boundary returns the next zone edge after pos, which is either the
// crossfade start or End. pos must be inside the region.
func (r Region) Boundary(pos, xfade int64) int64 {
	if xfade > 0 && pos < r.CrossfadeStart(xfade) {
		return r.CrossfadeStart(xfade)
	}
	return r.End
}

// Restart is where the cursor goes after reaching End: Start without a
// crossfade, just past the already-blended head otherwise.
func (r Region) Restart(xfade int64) int64 {
	return r.Start + max(xfade, 0)
}
