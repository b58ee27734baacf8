package audio

import (
	"math"
	"sort"
)

const (
	defaultFrameSize      = 1024
	defaultPropDecrease   = 1.0
	defaultThresholdRatio = 1.5
	defaultFloorQuantile  = 0.1
)

// NoiseOptions tunes ReduceNoise.
type NoiseOptions struct {
	// FrameSize is the analysis window in samples. Default 1024.
	FrameSize int
	// PropDecrease is how much of a noisy frame is removed, 0..1.
	// 1 silences it entirely. Default 1.
	PropDecrease float64
	// ThresholdRatio scales the estimated noise floor; frames whose RMS is
	// at or below floor*ratio are treated as noise. Default 1.5.
	ThresholdRatio float64
}

func (o NoiseOptions) withDefaults() NoiseOptions {
	if o.FrameSize <= 0 {
		o.FrameSize = defaultFrameSize
	}
	if o.PropDecrease <= 0 || o.PropDecrease > 1 {
		o.PropDecrease = defaultPropDecrease
	}
	if o.ThresholdRatio <= 0 {
		o.ThresholdRatio = defaultThresholdRatio
	}
	return o
}

// ReduceNoise applies a frame-wise noise gate. The noise floor is the 10th
// percentile of frame RMS levels; frames at or below the gate threshold are
// attenuated by PropDecrease, and gains are interpolated between frame
// centres so the gate does not click. A signal whose median frame is within
// the threshold has no distinguishable noise and is returned as is. The
// input slice is not modified.
func ReduceNoise(samples []float64, opts NoiseOptions) []float64 {
	opts = opts.withDefaults()
	out := make([]float64, len(samples))
	copy(out, samples)

	frames := (len(samples) + opts.FrameSize - 1) / opts.FrameSize
	if frames < 2 {
		return out
	}

	levels := make([]float64, frames)
	for i := range levels {
		start := i * opts.FrameSize
		end := min(start+opts.FrameSize, len(samples))
		levels[i] = RMS(samples[start:end])
	}

	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)
	floor := sorted[int(math.Floor(float64(frames-1)*defaultFloorQuantile))]
	if floor == 0 {
		floor = math.SmallestNonzeroFloat64
	}
	threshold := floor * opts.ThresholdRatio
	// No quiet stretch to learn the noise from.
	if threshold >= sorted[frames/2] {
		return out
	}

	gains := make([]float64, frames)
	for i, lvl := range levels {
		gains[i] = 1
		if lvl <= threshold {
			gains[i] = 1 - opts.PropDecrease
		}
	}

	half := float64(opts.FrameSize) / 2
	for i := range out {
		pos := (float64(i) - half) / float64(opts.FrameSize)
		idx := int(math.Floor(pos))
		var g float64
		switch {
		case idx < 0:
			g = gains[0]
		case idx >= frames-1:
			g = gains[frames-1]
		default:
			frac := pos - float64(idx)
			g = gains[idx]*(1-frac) + gains[idx+1]*frac
		}
		out[i] *= g
	}
	return out
}
