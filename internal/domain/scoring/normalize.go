package scoring

import (
	"sort"
	"strings"
)

// newReplacer builds a strings.Replacer from a substitution table. Keys are
// sorted so the replacer is deterministic; since keys and values are
// disjoint, order does not change the output.
func newReplacer(table map[string]string) *strings.Replacer {
	if len(table) == 0 {
		return nil
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, table[k])
	}
	return strings.NewReplacer(pairs...)
}

// Normalize canonicalizes text for lang and trims surrounding whitespace.
// Languages without substitutions (and unknown languages) are only trimmed.
func (e *Engine) Normalize(text string, lang Language) string {
	if r, ok := e.replacers[lang]; ok && r != nil {
		text = r.Replace(text)
	}
	return strings.TrimSpace(text)
}
