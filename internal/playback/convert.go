package playback

import (
	"encoding/binary"
	"math"
)

// remix converts interleaved 16-bit PCM from one channel count to another.
// Mono is duplicated to every output channel, multichannel input is averaged
// down to mono, and any other mapping repeats input channels in order. dst
// must hold frames*to samples; the number of bytes written is returned.
func remix(dst, src []byte, from, to int) int {
	frames := len(src) / (2 * from)
	if from == to {
		return copy(dst, src[:frames*2*from])
	}

	for f := range frames {
		in := src[f*2*from:]
		out := dst[f*2*to:]
		switch {
		case to == 1:
			var sum int
			for c := range from {
				sum += int(int16(binary.LittleEndian.Uint16(in[2*c:]))) //nolint:gosec // G115: reinterpreting sample bits
			}
			binary.LittleEndian.PutUint16(out, uint16(int16(sum/from))) //nolint:gosec // G115: average stays in range
		default:
			for c := range to {
				copy(out[2*c:2*c+2], in[2*(c%from):2*(c%from)+2])
			}
		}
	}
	return frames * 2 * to
}

// resample converts interleaved samples between rates with cubic
// interpolation, one channel at a time.
func resample(samples []int16, channels, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	frames := len(samples) / channels
	ratio := float64(toRate) / float64(fromRate)
	outFrames := int(float64(frames) * ratio)
	out := make([]int16, outFrames*channels)

	ch := make([]float32, frames)
	for c := range channels {
		for f := range frames {
			ch[f] = float32(samples[f*channels+c])
		}
		for i := range outFrames {
			out[i*channels+c] = clamp16(cubicAt(ch, float64(i)/ratio))
		}
	}
	return out
}

// cubicAt interpolates x at fractional position pos using the four
// surrounding samples, clamping at the edges.
func cubicAt(x []float32, pos float64) float32 {
	n := len(x)
	at := func(i int) float32 {
		return x[max(0, min(i, n-1))]
	}
	idx := int(pos)
	frac := float32(pos - float64(idx))
	y0, y1, y2, y3 := at(idx-1), at(idx), at(idx+1), at(idx+2)

	mu2 := frac * frac
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	return a0*frac*mu2 + a1*mu2 + a2*frac + y1
}

func clamp16(v float32) int16 {
	return int16(max(math.MinInt16, min(math.MaxInt16, math.Round(float64(v)))))
}

// scaleTo16 reduces a sample of the given bit depth to 16 bits.
func scaleTo16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		// 8-bit WAV is unsigned
		return int16((v - 128) << 8) //nolint:gosec // G115: 8-bit range
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16)) //nolint:gosec // G115: shifted into range
	default:
		return int16(v) //nolint:gosec // G115: already 16-bit
	}
}

func int16sToBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s)) //nolint:gosec // G115: reinterpreting sample bits
	}
	return out
}
