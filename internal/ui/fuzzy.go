package ui

import (
	"sort"
	"strings"

	"apiprobe/internal/model"
)

type scoredIdx struct {
	idx   int
	score int
}

// fuzzyMatchScore returns (score, ok). Lower score is better.
// Matching is a simple case-insensitive subsequence match.
func fuzzyMatchScore(needle, haystack string) (int, bool) {
	needle = strings.ToLower(needle)
	haystack = strings.ToLower(haystack)
	if needle == "" {
		return 0, true
	}

	score := 0
	j := 0
	for i := 0; i < len(haystack) && j < len(needle); i++ {
		if haystack[i] == needle[j] {
			score += i
			j++
		}
	}
	if j != len(needle) {
		return 0, false
	}
	return score, true
}

// operationHaystack is the text an operation is matched against: method,
// path, label and tags.
func operationHaystack(op model.Operation) string {
	parts := []string{strings.ToUpper(op.Method), op.Path}
	if l := op.Label(); l != "" {
		parts = append(parts, l)
	}
	parts = append(parts, op.Tags...)
	return strings.Join(parts, " ")
}

// filterOperations returns indexes into ops, best match first. A blank
// needle keeps document order.
func filterOperations(ops []model.Operation, needle string) []int {
	needle = strings.TrimSpace(needle)
	out := make([]int, 0, len(ops))
	if needle == "" {
		for i := range ops {
			out = append(out, i)
		}
		return out
	}

	var scored []scoredIdx
	for i, op := range ops {
		if s, ok := fuzzyMatchScore(needle, operationHaystack(op)); ok {
			scored = append(scored, scoredIdx{idx: i, score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score < scored[j].score })
	for _, s := range scored {
		out = append(out, s.idx)
	}
	return out
}
