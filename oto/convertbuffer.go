package oto

import "math"

// FloatBufferTo16BitLE converts a []float32 buffer, clamped to [-1, 1], to
// 16-bit little-endian PCM, appending to out.
func FloatBufferTo16BitLE(buffer []float32, out []byte) []byte {
	for _, v := range buffer {
		var s int16
		if v < -1.0 {
			s = -math.MaxInt16
		} else if v > 1.0 {
			s = math.MaxInt16
		} else {
			s = int16(v * math.MaxInt16)
		}
		out = append(out, byte(s), byte(s>>8))
	}
	return out
}
