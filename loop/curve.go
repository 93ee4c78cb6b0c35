// SPDX-License-Identifier: EPL-2.0

package loop

import (
	"math"

	"github.com/ik5/audloop/utils"
)

const (
	// CurveMin and CurveMax bound both control point coordinates.
	CurveMin = 0.05
	CurveMax = 0.95

	// LUTSize is the number of intervals in a FadeTable; the table holds
	// LUTSize+1 entries so both ends are represented exactly.
	LUTSize = 256

	// curveEpsilon is how far a control point must move before the table is
	// rebuilt.
	curveEpsilon = 1e-7
)

// DefaultCurve is the control point a new Looper starts with.
var DefaultCurve = Curve{X: 0.25, Y: 0.75}

// Curve is the control point of a quadratic Bezier running from (0,0) to
// (1,1). The curve maps crossfade progress to the fade-in gain of the head.
type Curve struct {
	X, Y float64
}

// Clamp limits both coordinates to [CurveMin, CurveMax]. NaN becomes the
// default coordinate.
func (c Curve) Clamp() Curve {
	return Curve{
		X: clampCoord(c.X, DefaultCurve.X),
		Y: clampCoord(c.Y, DefaultCurve.Y),
	}
}

func clampCoord(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return min(max(v, CurveMin), CurveMax)
}

// SolveT returns the Bezier parameter t whose x coordinate equals x.
//
// x(t) = 2(1-t)t*cx + t^2 rearranges to (1-2cx)t^2 + 2cx*t - x = 0.
func (c Curve) SolveT(x float64) float64 {
	a := 1 - 2*c.X

	var t float64
	if math.Abs(a) < 1e-6 {
		// x(t) is linear in t when cx == 0.5
		if c.X > 1e-6 {
			t = x / (2 * c.X)
		} else {
			t = x
		}
	} else {
		disc := 4*c.X*c.X + 4*a*x
		t = (-2*c.X + math.Sqrt(max(0, disc))) / (2 * a)
	}

	return utils.Clamp01(t)
}

// EvalY returns y(t) = 2(1-t)t*cy + t^2.
func (c Curve) EvalY(t float64) float64 {
	return 2*(1-t)*t*c.Y + t*t
}

// FadeIn is the head gain at crossfade progress x in [0,1].
func (c Curve) FadeIn(x float64) float64 {
	return c.EvalY(c.SolveT(x))
}

// near reports whether c and o are within curveEpsilon on both axes.
func (c Curve) near(o Curve) bool {
	return math.Abs(c.X-o.X) <= curveEpsilon && math.Abs(c.Y-o.Y) <= curveEpsilon
}

// FadeTable tabulates Curve.FadeIn at LUTSize+1 evenly spaced points so the
// render path interpolates instead of solving a quadratic per sample.
type FadeTable struct {
	curve Curve
	built bool
	gains [LUTSize + 1]float32
}

// NewFadeTable builds a table for c.
func NewFadeTable(c Curve) *FadeTable {
	f := &FadeTable{}
	f.Rebuild(c)

	return f
}

// Curve returns the control point the table was built for.
func (f *FadeTable) Curve() Curve { return f.curve }

// Stale reports whether c differs from the tabulated curve by more than the
// rebuild epsilon, or the table was never built.
func (f *FadeTable) Stale(c Curve) bool {
	return !f.built || !f.curve.near(c)
}

// Rebuild recomputes every entry for c.
func (f *FadeTable) Rebuild(c Curve) {
	for i := range f.gains {
		f.gains[i] = float32(c.FadeIn(float64(i) / LUTSize))
	}
	f.curve = c
	f.built = true
}

// Refresh rebuilds the table only when c has moved. It reports whether a
// rebuild happened.
func (f *FadeTable) Refresh(c Curve) bool {
	if !f.Stale(c) {
		return false
	}
	f.Rebuild(c)

	return true
}

// At returns table entry i, the gain at progress i/LUTSize.
func (f *FadeTable) At(i int) float32 { return f.gains[i] }

// Lookup returns the fade-in gain at progress in [0,1], linearly
// interpolating between neighbouring entries. Out-of-range progress is
// clamped.
func (f *FadeTable) Lookup(progress float32) float32 {
	if !(progress > 0) {
		return f.gains[0]
	}

	idx := progress * LUTSize
	i := int(idx)
	if i >= LUTSize {
		return f.gains[LUTSize]
	}

	return utils.Lerp(f.gains[i], f.gains[i+1], idx-float32(i))
}
