package config_test

import (
	"testing"
	"time"

	"github.com/okian/parrot/internal/config"
	"github.com/okian/parrot/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			convey.So(cfg.UploadDir, convey.ShouldEqual, "uploads")
			convey.So(cfg.Retention(), convey.ShouldEqual, 24*time.Hour)
			convey.So(cfg.CleanupInterval(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.MaxUploadBytes(), convey.ShouldEqual, 16<<20)
			convey.So(cfg.STTTemperature, convey.ShouldEqual, 0.2)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.FallbackLanguage, convey.ShouldEqual, "en")
			convey.So(cfg.Languages, convey.ShouldContainKey, "en")
			convey.So(cfg.Languages, convey.ShouldContainKey, "ar")
			convey.So(cfg.Languages["ar"].NoiseReduction, convey.ShouldEqual, 0.8)
			convey.So(cfg.Languages["en"].NoiseReduction, convey.ShouldEqual, 0.9)
		})

		convey.Convey("Then it should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Profiles(t *testing.T) {
	convey.Convey("Given configured languages", t, func() {
		cfg := config.New()
		cfg.Languages["ar"] = config.LanguageConfig{
			Feedback: config.FeedbackConfig{Excellent: "أحسنت!"},
		}
		cfg.Languages["fa"] = config.LanguageConfig{
			Replacements: map[string]string{"ي": "ی"},
			Feedback: config.FeedbackConfig{
				Unintelligible:   "متوجه نشدم",
				Excellent:        "عالی",
				Good:             "خوب:",
				NeedsImprovement: "نیاز به تمرین:",
			},
		}

		profiles := cfg.Profiles()

		convey.Convey("Then built-in fields are kept where nothing overrides them", func() {
			builtin := scoring.BuiltinProfiles()[scoring.Arabic]
			ar := profiles[scoring.Arabic]
			convey.So(ar.Messages.Excellent, convey.ShouldEqual, "أحسنت!")
			convey.So(ar.Messages.Good, convey.ShouldEqual, builtin.Messages.Good)
			convey.So(ar.Replacements, convey.ShouldResemble, builtin.Replacements)
		})

		convey.Convey("Then new languages are built from config alone", func() {
			fa := profiles[scoring.Language("fa")]
			convey.So(fa.Replacements["ي"], convey.ShouldEqual, "ی")
			convey.So(fa.Messages.Excellent, convey.ShouldEqual, "عالی")
		})

		convey.Convey("Then the profiles feed a scoring engine", func() {
			opts := make([]scoring.Option, 0, len(profiles))
			for lang, p := range profiles {
				opts = append(opts, scoring.WithProfile(lang, p))
			}
			engine := scoring.New(opts...)
			convey.So(engine.Supports("fa"), convey.ShouldBeTrue)
			convey.So(engine.Score("سلام", "سلام", "fa").Feedback, convey.ShouldEqual, "عالی")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given an invalid config", t, func() {
		cfg := config.New()
		cfg.Addr = ""
		cfg.WorkerCount = 0
		cfg.STTTemperature = 1.5
		cfg.LogFormat = "xml"
		cfg.Languages = map[string]config.LanguageConfig{"EN": {NoiseReduction: 2}}

		err := cfg.Validate()

		convey.Convey("Then every problem is reported", func() {
			convey.So(err, convey.ShouldNotBeNil)
			msg := err.Error()
			convey.So(msg, convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(msg, convey.ShouldContainSubstring, "worker_count must be positive")
			convey.So(msg, convey.ShouldContainSubstring, "stt_temperature")
			convey.So(msg, convey.ShouldContainSubstring, "log_format")
			convey.So(msg, convey.ShouldContainSubstring, `language code "EN"`)
			convey.So(msg, convey.ShouldContainSubstring, "languages.EN.noise_reduction")
		})

		convey.Convey("When a replacement table feeds into itself", func() {
			cfg := config.New()
			cfg.Languages["fa"] = config.LanguageConfig{
				Replacements: map[string]string{"ي": "ی", "ی": "ي"},
			}
			err := cfg.Validate()

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "languages.fa.replacements")
				convey.So(err.Error(), convey.ShouldContainSubstring, "itself replaced")
			})
		})

		convey.Convey("When the fallback language is not configured", func() {
			cfg := config.New()
			cfg.FallbackLanguage = "de"
			err := cfg.Validate()

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, `fallback_language "de"`)
			})
		})

		convey.Convey("When the fallback language is built in or configured", func() {
			cfg := config.New()
			cfg.FallbackLanguage = "ar"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			cfg.Languages["fa"] = config.LanguageConfig{}
			cfg.FallbackLanguage = "fa"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the language table is empty", func() {
			cfg := config.New()
			cfg.Languages = nil
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
