package mockdata

import (
	"fmt"
	"strings"
	"unicode"
)

type vocabEntry struct {
	key    string
	values []string
}

// dimensionVocab is matched in order, so a category naming two keywords
// ("Geo Region") always resolves to the first.
var dimensionVocab = []vocabEntry{
	{"geo", []string{"US", "GB", "DE", "FR", "CA", "AU", "JP", "BR"}},
	{"country", []string{"US", "GB", "DE", "FR", "CA", "AU", "JP", "BR"}},
	{"region", []string{"North", "South", "East", "West"}},
	{"dma", []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"}},
	{"city", []string{"New York", "London", "Berlin", "Paris", "Toronto", "Sydney"}},
	{"product", []string{"Apparel", "Electronics", "Home", "Beauty", "Sports"}},
	{"channel", []string{"Search", "Social", "Display", "Video", "Email"}},
	{"device", []string{"Desktop", "Mobile", "Tablet"}},
	{"campaign", []string{"Brand", "Prospecting", "Retargeting", "Promo"}},
	{"brand", []string{"Core", "Premium", "Value"}},
	{"audience", []string{"New", "Returning", "Loyal"}},
}

// Vocabulary returns the fixed value set drawn from for a dimension category.
// Unknown categories get a generic A-D set.
func Vocabulary(category string) []string {
	key := strings.ToLower(strings.TrimSpace(category))
	for _, e := range dimensionVocab {
		if key == e.key {
			return e.values
		}
	}
	for _, e := range dimensionVocab {
		if strings.Contains(key, e.key) {
			return e.values
		}
	}
	label := strings.TrimSpace(category)
	if label == "" {
		label = "Segment"
	}
	out := make([]string, 4)
	for i := range out {
		out[i] = fmt.Sprintf("%s %c", label, 'A'+i)
	}
	return out
}

var ratioHints = map[string]bool{
	"rate": true, "ratio": true, "share": true, "pct": true, "percent": true,
	"ctr": true, "cvr": true,
}

// isRatioLike reports whether a column name suggests a value bounded to 0-1.
// Hints match whole words only.
func isRatioLike(name string) bool {
	n := strings.ToLower(name)
	if strings.Contains(n, "%") {
		return true
	}
	words := strings.FieldsFunc(n, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if ratioHints[w] {
			return true
		}
	}
	return false
}
