package search

import (
	"sort"
	"strings"
)

// docKeywords mark URLs that are likely documentation.
var docKeywords = []string{"docs", "documentation", "api", "reference", "readthedocs", "github.com"}

// urlScore counts how many doc keywords occur in the lowercased URL.
func urlScore(u string) int {
	u = strings.ToLower(u)
	score := 0
	for _, kw := range docKeywords {
		if strings.Contains(u, kw) {
			score++
		}
	}
	return score
}

// RankURLs returns a copy of urls ordered by descending doc keyword score. URLs with equal
// scores keep their search order.
func RankURLs(urls []string) []string {
	ranked := make([]string, len(urls))
	copy(ranked, urls)
	sort.SliceStable(ranked, func(i, j int) bool { return urlScore(ranked[i]) > urlScore(ranked[j]) })
	return ranked
}
