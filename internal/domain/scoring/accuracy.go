package scoring

import (
	"math"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const maxAccuracy = 100.0

// Accuracy returns the percentage similarity between target and actual,
// derived from their Levenshtein distance over code points. Either string
// being empty yields exactly 0.
func Accuracy(target, actual string) float64 {
	if target == "" || actual == "" {
		return 0
	}
	distance := matchr.Levenshtein(target, actual)
	longest := max(utf8.RuneCountInString(target), utf8.RuneCountInString(actual))
	return math.Max(0, maxAccuracy-(float64(distance)/float64(longest)*maxAccuracy))
}
