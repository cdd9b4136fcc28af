// Catalog retrieval - keyword ranking over the immutable snapshot.
//
// DESIGN: Token-overlap scoring between the normalized query and each item's
// name, brand, and category. Items with zero overlap are excluded. Ranking is
// deterministic for a fixed snapshot and query: ties break on catalog id
// ascending. Pure function, no side effects, safe for concurrent use.
package catalog

import (
	"sort"
	"strings"
)

// Scoring weights. A full-phrase name hit dominates individual word overlap.
const (
	nameContainsQueryScore = 100
	nameWordScore          = 10
	brandWordScore         = 8
	categoryWordScore      = 5
	minWordLen             = 3
)

// Rank returns up to k items relevant to the query, best match first.
func (s *Snapshot) Rank(query string, k int) []Item {
	if k <= 0 || len(s.items) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	queryWords := tokenize(queryLower)
	if len(queryWords) == 0 {
		return nil
	}

	type scored struct {
		item  Item
		score int
	}

	results := make([]scored, 0)
	for _, item := range s.items {
		nameLower := strings.ToLower(item.Name)
		brandLower := strings.ToLower(item.Brand)
		categoryLower := strings.ToLower(item.Category)

		score := 0
		if nameLower != "" && strings.Contains(queryLower, nameLower) {
			score += nameContainsQueryScore
		}
		for _, word := range queryWords {
			if len(word) < minWordLen {
				continue
			}
			if strings.Contains(nameLower, word) {
				score += nameWordScore
			}
			if strings.Contains(brandLower, word) {
				score += brandWordScore
			}
			if strings.Contains(categoryLower, word) {
				score += categoryWordScore
			}
		}

		if score > 0 {
			results = append(results, scored{item, score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].item.ID < results[j].item.ID
	})

	if len(results) > k {
		results = results[:k]
	}
	top := make([]Item, 0, len(results))
	for _, r := range results {
		top = append(top, r.item)
	}
	return top
}

// tokenize splits normalized text into words for overlap matching.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		isLowerAlpha := r >= 'a' && r <= 'z'
		isDigit := r >= '0' && r <= '9'
		if isLowerAlpha || isDigit || r == '_' || r == '-' {
			return false
		}
		return true
	})
}
