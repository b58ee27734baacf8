// Package scoring compares a transcription with its target text: it
// normalizes both per language, derives an accuracy percentage from their
// edit distance and picks a feedback message from fixed accuracy tiers.
//
// Every function here is pure. An Engine is read-only after New and may be
// shared by any number of goroutines; the language is always passed in
// explicitly.
package scoring

import (
	"slices"
	"strings"
)

// Option configures an Engine.
type Option func(*Engine)

// WithProfile registers or replaces the profile for lang. Missing messages
// are filled from the English row so every tier always has text.
func WithProfile(lang Language, p Profile) Option {
	return func(e *Engine) {
		if lang == "" {
			return
		}
		e.profiles[lang] = p
	}
}

// WithFallbackLanguage sets the language whose messages are used for tags the
// engine does not know. Defaults to English.
func WithFallbackLanguage(lang Language) Option {
	return func(e *Engine) {
		if lang != "" {
			e.fallback = lang
		}
	}
}

// Result is the outcome of scoring one utterance.
type Result struct {
	NormalizedActual string  `json:"normalized_actual"`
	Accuracy         float64 `json:"accuracy"`
	Feedback         string  `json:"feedback"`
	Tier             Tier    `json:"tier"`
}

// Engine scores utterances against per-language profiles.
type Engine struct {
	profiles  map[Language]Profile
	replacers map[Language]*strings.Replacer
	fallback  Language
}

// New builds an Engine with the built-in en and ar profiles plus any
// profiles supplied through opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		profiles: BuiltinProfiles(),
		fallback: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, ok := e.profiles[e.fallback]; !ok {
		e.fallback = DefaultLanguage
	}

	fallback := e.profiles[e.fallback].Messages
	if !fallback.complete() {
		fallback = englishMessages
	}
	e.replacers = make(map[Language]*strings.Replacer, len(e.profiles))
	for lang, p := range e.profiles {
		p.Messages = fillMessages(p.Messages, fallback)
		e.profiles[lang] = p
		e.replacers[lang] = newReplacer(p.Replacements)
	}
	return e
}

func fillMessages(m, from Messages) Messages {
	if m.Unintelligible == "" {
		m.Unintelligible = from.Unintelligible
	}
	if m.Excellent == "" {
		m.Excellent = from.Excellent
	}
	if m.Good == "" {
		m.Good = from.Good
	}
	if m.NeedsImprovement == "" {
		m.NeedsImprovement = from.NeedsImprovement
	}
	return m
}

// Supports reports whether lang has a registered profile.
func (e *Engine) Supports(lang Language) bool {
	_, ok := e.profiles[lang]
	return ok
}

// Languages lists registered languages in sorted order.
func (e *Engine) Languages() []Language {
	out := make([]Language, 0, len(e.profiles))
	for lang := range e.profiles {
		out = append(out, lang)
	}
	slices.Sort(out)
	return out
}

func (e *Engine) messages(lang Language) Messages {
	if p, ok := e.profiles[lang]; ok {
		return p.Messages
	}
	return e.profiles[e.fallback].Messages
}

// Score normalizes actual and target for lang, computes their accuracy and
// selects the feedback message.
func (e *Engine) Score(target, actual string, lang Language) Result {
	normTarget := e.Normalize(target, lang)
	normActual := e.Normalize(actual, lang)
	acc := Accuracy(normTarget, normActual)
	tier := Classify(normTarget, normActual, acc)
	return Result{
		NormalizedActual: normActual,
		Accuracy:         acc,
		Feedback:         e.messages(lang).For(tier),
		Tier:             tier,
	}
}

// builtin is the engine behind the package-level helpers.
var builtin = New() //nolint:gochecknoglobals // read-only after init

// Normalize canonicalizes text using the built-in profiles.
func Normalize(text string, lang Language) string { return builtin.Normalize(text, lang) }

// Feedback selects a message using the built-in profiles.
func Feedback(target, actual string, accuracy float64, lang Language) string {
	return builtin.Feedback(target, actual, accuracy, lang)
}

// Score scores an utterance using the built-in profiles.
func Score(target, actual string, lang Language) Result { return builtin.Score(target, actual, lang) }
