// SPDX-License-Identifier: EPL-2.0

package utils

// FullScale returns the magnitude of the most negative integer sample for a
// PCM bit depth, which maps to -1.0 in float. Unknown depths fall back to
// 16-bit.
func FullScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}

// IntToFloat32 normalizes an integer PCM sample of the given bit depth.
func IntToFloat32(v int, bitDepth int) float32 {
	return float32(v) / FullScale(bitDepth)
}

// Float32ToInt clamps x to [-1, 1] and scales it to the given bit depth,
// using full scale minus one for the positive side to avoid overflow.
func Float32ToInt(x float32, bitDepth int) int {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	return int(x * (FullScale(bitDepth) - 1))
}

func Float32ToInt16(x float32) int16 {
	return int16(Float32ToInt(x, 16))
}
