// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Durations are configured as integer seconds or hours and exposed as
//     time.Duration through accessor methods.
//   - Languages are keyed by ISO 639-1 code; built-in languages fill any
//     field a configured entry leaves empty.
package config

import (
	"maps"
	"time"

	"github.com/okian/parrot/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// UploadDir is where recordings and synthesized audio are written.
	UploadDir string `koanf:"upload_dir"`

	// RetentionHours is how long stored audio is kept.
	RetentionHours int `koanf:"retention_hours"`

	// CleanupIntervalSec is the period of the expired-file sweep.
	CleanupIntervalSec int `koanf:"cleanup_interval_sec"`

	// MaxUploadMB caps the multipart request body.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// STTURL is the base URL of the whisper.cpp server.
	STTURL string `koanf:"stt_url"`

	// STTTimeoutSec bounds one transcription request.
	STTTimeoutSec int `koanf:"stt_timeout_sec"`

	// STTTemperature is the decoding temperature sent with every request.
	STTTemperature float64 `koanf:"stt_temperature"`

	// TTSURL is the base URL of the Coqui TTS server.
	TTSURL string `koanf:"tts_url"`

	// TTSTimeoutSec bounds one synthesis request.
	TTSTimeoutSec int `koanf:"tts_timeout_sec"`

	// QueueSize bounds the number of transcriptions waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets how many transcriptions may run at once.
	WorkerCount int `koanf:"worker_count"`

	// RequestTimeoutSec bounds a whole assessment.
	RequestTimeoutSec int `koanf:"request_timeout_sec"`

	// Languages maps language codes to their settings.
	Languages map[string]LanguageConfig `koanf:"languages"`

	// FallbackLanguage supplies feedback messages for languages without a
	// complete message table.
	FallbackLanguage string `koanf:"fallback_language"`
}

// LanguageConfig holds per-language settings.
type LanguageConfig struct {
	// STTModel overrides the whisper model for this language.
	STTModel string `koanf:"stt_model"`

	// TTSSpeaker selects the speaker on multi-speaker TTS models.
	TTSSpeaker string `koanf:"tts_speaker"`

	// NoiseReduction is the proportion of noise removed from recordings, 0..1.
	NoiseReduction float64 `koanf:"noise_reduction"`

	// Replacements are character substitutions applied before comparison.
	Replacements map[string]string `koanf:"replacements"`

	// Feedback overrides the feedback messages.
	Feedback FeedbackConfig `koanf:"feedback"`
}

// FeedbackConfig mirrors scoring.Messages.
type FeedbackConfig struct {
	Unintelligible   string `koanf:"unintelligible"`
	Excellent        string `koanf:"excellent"`
	Good             string `koanf:"good"`
	NeedsImprovement string `koanf:"needs_improvement"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":5000",
		UploadDir:          "uploads",
		RetentionHours:     24,
		CleanupIntervalSec: 3600,
		MaxUploadMB:        16,
		STTURL:             "http://localhost:8080",
		STTTimeoutSec:      120,
		STTTemperature:     0.2,
		TTSURL:             "http://localhost:5002",
		TTSTimeoutSec:      30,
		QueueSize:          32,
		WorkerCount:        1,
		RequestTimeoutSec:  180,
		FallbackLanguage:   string(scoring.English),
		Languages: map[string]LanguageConfig{
			string(scoring.English): {NoiseReduction: 0.9},
			string(scoring.Arabic):  {NoiseReduction: 0.8},
		},
	}
}

// Retention returns how long stored audio is kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// CleanupInterval returns the sweep period.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSec) * time.Second
}

// MaxUploadBytes returns the request body limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// STTTimeout returns the transcription timeout.
func (c *Config) STTTimeout() time.Duration {
	return time.Duration(c.STTTimeoutSec) * time.Second
}

// TTSTimeout returns the synthesis timeout.
func (c *Config) TTSTimeout() time.Duration {
	return time.Duration(c.TTSTimeoutSec) * time.Second
}

// RequestTimeout returns the per-assessment timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// Profiles builds scoring profiles for the configured languages. Fields a
// language leaves empty are taken from the built-in profile of the same
// language, when there is one.
func (c *Config) Profiles() map[scoring.Language]scoring.Profile {
	builtin := scoring.BuiltinProfiles()
	out := make(map[scoring.Language]scoring.Profile, len(c.Languages))
	for code, lc := range c.Languages {
		lang := scoring.ParseLanguage(code)
		p := builtin[lang]

		if len(lc.Replacements) > 0 {
			p.Replacements = maps.Clone(lc.Replacements)
		}
		fb := lc.Feedback
		if fb.Unintelligible != "" {
			p.Messages.Unintelligible = fb.Unintelligible
		}
		if fb.Excellent != "" {
			p.Messages.Excellent = fb.Excellent
		}
		if fb.Good != "" {
			p.Messages.Good = fb.Good
		}
		if fb.NeedsImprovement != "" {
			p.Messages.NeedsImprovement = fb.NeedsImprovement
		}
		out[lang] = p
	}
	return out
}
