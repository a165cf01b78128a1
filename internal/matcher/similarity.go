package matcher

import (
	"github.com/agnivade/levenshtein"
)

// codeSimilarity returns an edit-distance ratio between two reference
// codes in [0.0, 1.0], where 1.0 means equal. Either side being empty
// yields 0.0.
func codeSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// sharedPrefixLen returns the length of the common leading run of two
// codes.
func sharedPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
