package match

import (
	"fmt"
	"math"
	"strings"
)

// fuzzyThreshold is the similarity above which a fuzzy pattern matches.
const fuzzyThreshold = 0.70

// Fuzzy matches when the normalized Levenshtein similarity between the
// lowercased pattern and text exceeds the threshold. Confidence is the
// similarity scaled to [0,100].
func Fuzzy(pattern, text string) Result {
	sim := Similarity(strings.ToLower(pattern), strings.ToLower(text))
	if sim > fuzzyThreshold {
		return Result{
			Matched:    true,
			Confidence: int(math.Round(sim * 100)),
			Reason:     fmt.Sprintf("fuzzy similarity %.2f", sim),
		}
	}
	return Result{}
}

// Similarity returns (maxLen - levenshtein(a,b)) / maxLen in [0,1].
// Two empty strings are identical, similarity 1.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return float64(maxLen-Levenshtein(ra, rb)) / float64(maxLen)
}

// Levenshtein computes the edit distance between a and b with unit
// costs for insert, delete and substitute. Two-row dynamic program.
func Levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
