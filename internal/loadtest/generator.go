package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/parrot/pkg/audio"
	"github.com/okian/parrot/pkg/logger"
)

const randomFloatDivisor = 1000000

var phrases = map[string][]string{
	"en": {
		"hello world",
		"the quick brown fox jumps over the lazy dog",
		"practice makes perfect",
		"how are you today",
		"she sells sea shells by the sea shore",
	},
	"ar": {
		"مرحبا بالعالم",
		"كيف حالك اليوم",
		"الممارسة تصنع الكمال",
		"أنا أتعلم اللغة العربية",
	},
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateUploads builds config.Requests submissions, each with its own
// synthetic WAV clip.
func generateUploads(ctx context.Context, config *Config, stats *Stats) ([]Upload, error) {
	logger.Get().Info(ctx, "generating uploads", logger.Int("requests", config.Requests))

	texts, ok := phrases[config.Language]
	if !ok {
		texts = phrases["en"]
	}

	uploads := make([]Upload, config.Requests)
	for i := range uploads {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during upload generation: %w", err)
		}
		uploads[i] = Upload{
			Text:     texts[i%len(texts)],
			Language: config.Language,
			Filename: "take_" + uuid.NewString() + ".wav",
			Audio:    generateClip(),
		}
	}

	stats.UploadsGenerated = len(uploads)
	logger.Get().Info(ctx, "generated uploads successfully", logger.Int("count", len(uploads)))
	return uploads, nil
}

// generateClip returns a mono 16-bit WAV tone of random pitch and length.
func generateClip() []byte {
	span := float64(clipMaxDuration - clipMinDuration)
	duration := clipMinDuration + time.Duration(getRandomFloat()*span)
	pitch := clipMinPitchHz + getRandomFloat()*(clipMaxPitchHz-clipMinPitchHz)

	n := int(duration.Seconds() * clipSampleRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = clipAmplitude * math.Sin(2*math.Pi*pitch*float64(i)/clipSampleRate)
	}
	return audio.EncodeWAV(samples, clipSampleRate)
}
