package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/parrot/internal/domain/scoring"
)

const (
	envPrefix     = "PARROT_"
	envConfigFile = "PARROT_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PARROT_CONFIG is set
//  3. env (prefix PARROT_)
//
// The result is validated before it is returned.
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PARROT_STT_URL -> stt_url. Underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envConfigFile {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// A configured language table replaces the default one.
	if k.Exists("languages") {
		cfg.Languages = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	fillLanguageDefaults(k, &cfg, base.Languages)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isKnownLanguage(lang scoring.Language, configured map[string]LanguageConfig) bool {
	if lang == scoring.English || lang == scoring.Arabic {
		return true
	}
	_, ok := configured[lang.String()]
	return ok
}

// fillLanguageDefaults restores built-in values for fields a configured
// language entry does not set. An explicit zero noise_reduction is kept.
func fillLanguageDefaults(k *koanf.Koanf, cfg *Config, builtin map[string]LanguageConfig) {
	for code, lc := range cfg.Languages {
		def, ok := builtin[code]
		if !ok {
			continue
		}
		if !k.Exists("languages." + code + ".noise_reduction") {
			lc.NoiseReduction = def.NoiseReduction
		}
		cfg.Languages[code] = lc
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Addr == "" {
		add("addr must not be empty")
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		add("upload_dir must not be empty")
	}
	if c.STTURL == "" {
		add("stt_url must not be empty")
	}
	if c.TTSURL == "" {
		add("tts_url must not be empty")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		add("log_format must be text or json, got %q", c.LogFormat)
	}
	for name, v := range map[string]int{
		"retention_hours":      c.RetentionHours,
		"cleanup_interval_sec": c.CleanupIntervalSec,
		"max_upload_mb":        c.MaxUploadMB,
		"stt_timeout_sec":      c.STTTimeoutSec,
		"tts_timeout_sec":      c.TTSTimeoutSec,
		"queue_size":           c.QueueSize,
		"worker_count":         c.WorkerCount,
		"request_timeout_sec":  c.RequestTimeoutSec,
	} {
		if v <= 0 {
			add("%s must be positive, got %d", name, v)
		}
	}
	if c.STTTemperature < 0 || c.STTTemperature > 1 {
		add("stt_temperature must be within [0, 1], got %g", c.STTTemperature)
	}

	if len(c.Languages) == 0 {
		add("at least one language must be configured")
	}
	for code, lc := range c.Languages {
		if code == "" || scoring.ParseLanguage(code).String() != code {
			add("language code %q must be non-empty, trimmed and lower case", code)
		}
		if lc.NoiseReduction < 0 || lc.NoiseReduction > 1 {
			add("languages.%s.noise_reduction must be within [0, 1], got %g", code, lc.NoiseReduction)
		}
		for from, to := range lc.Replacements {
			if from == "" {
				add("languages.%s.replacements has an empty key", code)
			}
			if _, chained := lc.Replacements[to]; chained {
				add("languages.%s.replacements maps %q to %q, which is itself replaced", code, from, to)
			}
		}
	}
	if fb := scoring.ParseLanguage(c.FallbackLanguage); !isKnownLanguage(fb, c.Languages) {
		add("fallback_language %q is not a configured language", c.FallbackLanguage)
	}

	return errors.Join(errs...)
}
