// SPDX-License-Identifier: EPL-2.0

package control

import (
	"github.com/ik5/audloop/layer"
)

// Params is one parameter update. Every field is optional; nil leaves the
// current value alone.
type Params struct {
	LoopStart        *int64   `json:"loop_start,omitempty"`
	LoopEnd          *int64   `json:"loop_end,omitempty"`
	Looping          *bool    `json:"looping,omitempty"`
	CrossfadeMs      *float64 `json:"crossfade_ms,omitempty"`
	CrossfadeSamples *int     `json:"crossfade_samples,omitempty"`
	CurveX           *float64 `json:"curve_x,omitempty"`
	CurveY           *float64 `json:"curve_y,omitempty"`
	Volume           *float32 `json:"volume,omitempty"`
	HighPassHz       *float64 `json:"highpass_hz,omitempty"`
	Playing          *bool    `json:"playing,omitempty"`
}

// Target is the set of controls a Subscriber drives. *layer.Layer
// implements it.
type Target interface {
	SetLoopRange(start, end int64)
	SetLooping(on bool)
	SetCrossfadeMs(ms float64)
	SetCrossfadeSamples(frames int)
	SetCrossfadeCurve(x, y float64)
	SetVolume(v float32)
	SetHighPass(hz float64)
	Start()
	Stop()
	Settings() layer.Settings
}

var _ Target = (*layer.Layer)(nil)

func (p Params) empty() bool {
	return p.LoopStart == nil && p.LoopEnd == nil && p.Looping == nil &&
		p.CrossfadeMs == nil && p.CrossfadeSamples == nil &&
		p.CurveX == nil && p.CurveY == nil &&
		p.Volume == nil && p.HighPassHz == nil && p.Playing == nil
}

// Validate rejects updates that cannot be applied. Out of range values that
// the engine clamps are accepted.
func (p Params) Validate() error {
	if p.empty() {
		return ErrEmptyParams
	}
	if (p.LoopStart != nil && *p.LoopStart < 0) || (p.LoopEnd != nil && *p.LoopEnd < 0) {
		return ErrNegativeRange
	}
	return nil
}

// Apply writes p to t. Each parameter is stored on its own, so a render
// running at the same time may see some of the new values and not others
// for one block. A half-specified loop range or curve keeps the other half
// from t's current settings. When both crossfade fields are set, the
// sample count wins.
func Apply(t Target, p Params) {
	if p.LoopStart != nil || p.LoopEnd != nil || p.CurveX != nil || p.CurveY != nil {
		cur := t.Settings()

		if p.LoopStart != nil || p.LoopEnd != nil {
			start, end := cur.LoopStart, cur.LoopEnd
			if p.LoopStart != nil {
				start = *p.LoopStart
			}
			if p.LoopEnd != nil {
				end = *p.LoopEnd
			}
			t.SetLoopRange(start, end)
		}

		if p.CurveX != nil || p.CurveY != nil {
			x, y := cur.CurveX, cur.CurveY
			if p.CurveX != nil {
				x = *p.CurveX
			}
			if p.CurveY != nil {
				y = *p.CurveY
			}
			t.SetCrossfadeCurve(x, y)
		}
	}

	if p.Looping != nil {
		t.SetLooping(*p.Looping)
	}

	switch {
	case p.CrossfadeSamples != nil:
		t.SetCrossfadeSamples(*p.CrossfadeSamples)
	case p.CrossfadeMs != nil:
		t.SetCrossfadeMs(*p.CrossfadeMs)
	}

	if p.Volume != nil {
		t.SetVolume(*p.Volume)
	}
	if p.HighPassHz != nil {
		t.SetHighPass(*p.HighPassHz)
	}

	if p.Playing != nil {
		if *p.Playing {
			t.Start()
		} else {
			t.Stop()
		}
	}
}
