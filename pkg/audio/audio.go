// Package audio holds the small amount of signal handling the service needs
// before an upload is sent for transcription: RIFF/WAVE decoding and
// encoding, down-mixing, resampling and an energy-based noise gate.
//
// Samples are float64 in [-1, 1].
package audio

import (
	"errors"
	"math"
)

// Sentinel errors.
var (
	ErrNotWAV            = errors.New("audio: not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("audio: unsupported sample format")
	ErrEmptyAudio        = errors.New("audio: no samples")
)

// Clip is decoded audio, one slice of samples per channel.
type Clip struct {
	SampleRate int
	Channels   int
	Samples    [][]float64
}

// Len returns the number of sample frames.
func (c Clip) Len() int {
	if len(c.Samples) == 0 {
		return 0
	}
	return len(c.Samples[0])
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Len()) / float64(c.SampleRate)
}

// Mono averages all channels into one.
func (c Clip) Mono() []float64 {
	switch len(c.Samples) {
	case 0:
		return nil
	case 1:
		out := make([]float64, len(c.Samples[0]))
		copy(out, c.Samples[0])
		return out
	}
	n := c.Len()
	out := make([]float64, n)
	scale := 1 / float64(len(c.Samples))
	for _, ch := range c.Samples {
		for i := 0; i < n && i < len(ch); i++ {
			out[i] += ch[i] * scale
		}
	}
	return out
}

// Resample converts mono samples from srcRate to dstRate with linear
// interpolation. The input is returned unchanged when the rates match.
func Resample(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || len(samples) == 0 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}
	out := make([]float64, dstLen)
	ratio := float64(srcRate) / float64(dstRate)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// RMS returns the root-mean-square level of samples; 0 for an empty slice.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
