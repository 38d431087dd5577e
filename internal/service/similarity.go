package service

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// DefaultCorrectnessThreshold is the similarity at or above which an answer counts as correct.
const DefaultCorrectnessThreshold = 90.0

var unitCost = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Similarity returns how alike two strings are on a 0-100 scale, using the
// Levenshtein distance over lowercased, trimmed runes normalised by the
// longer input. Two empty strings are identical.
func Similarity(reference, candidate string) float64 {
	ref := []rune(strings.ToLower(strings.TrimSpace(reference)))
	cand := []rune(strings.ToLower(strings.TrimSpace(candidate)))

	longest := max(len(ref), len(cand))
	if longest == 0 {
		return 100
	}

	distance := levenshtein.DistanceForStrings(ref, cand, unitCost)
	score := (1 - float64(distance)/float64(longest)) * 100
	return min(max(score, 0), 100)
}

func IsCorrect(similarity, threshold float64) bool {
	return similarity >= threshold
}
