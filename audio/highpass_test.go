// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"testing"

	"github.com/ik5/audloop/internal/audiotest"
)

// rms of the second half of buf, after the filter settles.
func settledRMS(buf []float32) float64 {
	tail := buf[len(buf)/2:]
	sum := 0.0
	for _, v := range tail {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(tail)))
}

func TestHighPass_RemovesDC(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(48000, 2, 48000, 0.5)
	hp := NewHighPass(src, DefaultHighPassHz)

	buf := make([]float32, 2*48000)
	n, _ := hp.ReadSamples(buf)
	if n != len(buf) {
		t.Fatalf("ReadSamples() n = %d, want %d", n, len(buf))
	}

	if rms := settledRMS(buf); rms > 1e-3 {
		t.Errorf("DC residue rms = %v, want < 1e-3", rms)
	}
}

func TestHighPass_PassesAudibleTone(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSineSource(48000, 1, 48000, 1000)
	hp := NewHighPass(src, DefaultHighPassHz)

	buf := make([]float32, 48000)
	_, _ = hp.ReadSamples(buf)

	// a full-scale sine has rms 1/sqrt(2)
	if rms := settledRMS(buf); math.Abs(rms-math.Sqrt2/2) > 0.01 {
		t.Errorf("1 kHz rms = %v, want about %v", rms, math.Sqrt2/2)
	}
}

func TestHighPass_AttenuatesBelowCutoff(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSineSource(48000, 1, 96000, 50)
	hp := NewHighPass(src, 1000)

	buf := make([]float32, 96000)
	_, _ = hp.ReadSamples(buf)

	// two octaves and a bit below a 12 dB/oct cutoff
	if rms := settledRMS(buf); rms > 0.01 {
		t.Errorf("50 Hz rms through 1 kHz high-pass = %v, want < 0.01", rms)
	}
}

func TestHighPass_SetCutoff(t *testing.T) {
	t.Parallel()

	hp := NewHighPass(audiotest.NewConstantSource(44100, 1, 10, 0), DefaultHighPassHz)

	if hp.Cutoff() != DefaultHighPassHz {
		t.Errorf("Cutoff() = %v, want %v", hp.Cutoff(), DefaultHighPassHz)
	}

	hp.SetCutoff(120)
	if hp.Cutoff() != 120 {
		t.Errorf("Cutoff() = %v, want 120", hp.Cutoff())
	}

	// out of range values are clamped when applied, never produce NaN
	hp.SetCutoff(1e9)
	buf := make([]float32, 10)
	_, _ = hp.ReadSamples(buf)
	for i, v := range buf {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("buf[%d] = %v", i, v)
		}
	}

	hp.Reset()
	if hp.Channels() != 1 || hp.SampleRate() != 44100 {
		t.Errorf("format = %d ch @ %d Hz", hp.Channels(), hp.SampleRate())
	}
}

func BenchmarkHighPass_ReadSamples(b *testing.B) {
	hp := NewHighPass(audiotest.NewSineSource(48000, 2, math.MaxInt32, 440), DefaultHighPassHz)
	buf := make([]float32, 1024)

	b.ReportAllocs()

	for b.Loop() {
		_, _ = hp.ReadSamples(buf)
	}
}
