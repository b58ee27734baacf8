package scoring

import "strings"

// Language tags a piece of text with the rules used to normalize it and the
// phrasing used for feedback.
type Language string

// Built-in languages.
const (
	English Language = "en"
	Arabic  Language = "ar"
)

// DefaultLanguage is used when a caller does not name one.
const DefaultLanguage = English

// ParseLanguage lower-cases and trims a raw tag. It does not check support;
// use Engine.Supports for that.
func ParseLanguage(raw string) Language {
	return Language(strings.ToLower(strings.TrimSpace(raw)))
}

// String implements fmt.Stringer.
func (l Language) String() string { return string(l) }

// Profile holds everything the engine knows about one language.
type Profile struct {
	// Replacements maps letter variants to their canonical form. Keys and
	// values must be disjoint so that normalization stays idempotent.
	Replacements map[string]string
	// Messages is the feedback table row for this language.
	Messages Messages
}

// arabicReplacements collapses hamza-bearing alef forms, ta-marbuta,
// alef-maksura and hamza carriers to their canonical letters.
var arabicReplacements = map[string]string{ //nolint:gochecknoglobals // immutable lookup table
	"أ": "ا",
	"إ": "ا",
	"آ": "ا",
	"ة": "ه",
	"ى": "ي",
	"ئ": "ء",
	"ؤ": "ء",
}

// BuiltinProfiles returns fresh copies of the en and ar profiles.
func BuiltinProfiles() map[Language]Profile {
	ar := make(map[string]string, len(arabicReplacements))
	for k, v := range arabicReplacements {
		ar[k] = v
	}
	return map[Language]Profile{
		English: {Messages: englishMessages},
		Arabic:  {Replacements: ar, Messages: arabicMessages},
	}
}
