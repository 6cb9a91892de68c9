package match

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// fuzzyTokenMinLen is the minimum token length for which a one-edit
// difference still counts as a match. Short tokens must match exactly,
// otherwise "S.A." and "S.L." style fragments collide.
const fuzzyTokenMinLen = 5

// Similarity returns the normalized token overlap of two descriptions, in
// [0,1]. Tokens are case-folded alphanumeric runs; two tokens are
// considered equal when identical or, for longer tokens, within one edit
// of each other.
func Similarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	matched := 0
	used := make([]bool, len(tb))
	for _, x := range ta {
		for i, y := range tb {
			if used[i] {
				continue
			}
			if tokensEqual(x, y) {
				used[i] = true
				matched++
				break
			}
		}
	}

	longer := len(ta)
	if len(tb) > longer {
		longer = len(tb)
	}
	return float64(matched) / float64(longer)
}

func tokensEqual(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < fuzzyTokenMinLen || len(b) < fuzzyTokenMinLen {
		return false
	}
	d := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return d <= 1
}

// tokenize splits a description into lowercase alphanumeric tokens,
// dropping single characters.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var tokens []string
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
