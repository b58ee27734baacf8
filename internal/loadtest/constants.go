package loadtest

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProgressInterval     = time.Second
	PercentageMultiplier = 100
)

// Generated clip constants.
const (
	clipSampleRate  = 16000
	clipMinDuration = 500 * time.Millisecond
	clipMaxDuration = 2 * time.Second
	clipMinPitchHz  = 110.0
	clipMaxPitchHz  = 440.0
	clipAmplitude   = 0.3
)
