// Package knowledge provides the in-memory index over the candidate's
// prepared Q&A material. It supports O(1) exact lookup on normalized
// question text and an O(n) fuzzy fallback over all indexed keys.
package knowledge

import (
	"strings"
	"unicode"

	"ai-interview-copilot/internal/models"
)

// nearPerfect short-circuits the fuzzy scan once a score this high is found.
const nearPerfect = 0.95

// Index maps normalized question strings (main question plus all stated
// variations) to their knowledge items. Rebuild replaces the whole index;
// it is not safe to call concurrently with a lookup. The owning session
// serializes access.
type Index struct {
	byQuestion map[string]models.KnowledgeItem
	keys       []string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{byQuestion: map[string]models.KnowledgeItem{}}
}

// Rebuild replaces the index contents with the given items.
func (ix *Index) Rebuild(items []models.KnowledgeItem) {
	byQuestion := make(map[string]models.KnowledgeItem, len(items))
	keys := make([]string, 0, len(items))

	for _, item := range items {
		for _, q := range append([]string{item.Question}, item.Variations...) {
			key := Normalize(q)
			if key == "" {
				continue
			}
			if _, dup := byQuestion[key]; dup {
				continue
			}
			byQuestion[key] = item
			keys = append(keys, key)
		}
	}

	ix.byQuestion = byQuestion
	ix.keys = keys
}

// Len returns the number of indexed question strings.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// LookupExact returns the item whose normalized question (or variation)
// equals the normalized input.
func (ix *Index) LookupExact(text string) (models.KnowledgeItem, bool) {
	item, ok := ix.byQuestion[Normalize(text)]
	return item, ok
}

// LookupFuzzy scans all indexed keys and returns the best-scoring item
// under the hybrid similarity metric, with its score.
func (ix *Index) LookupFuzzy(text string) (models.KnowledgeItem, float64, bool) {
	query := Normalize(text)
	if query == "" || len(ix.keys) == 0 {
		return models.KnowledgeItem{}, 0, false
	}

	var bestKey string
	var bestScore float64
	for _, key := range ix.keys {
		score := Similarity(query, key)
		if score > bestScore {
			bestScore = score
			bestKey = key
			if score >= nearPerfect {
				break
			}
		}
	}

	if bestKey == "" {
		return models.KnowledgeItem{}, 0, false
	}
	return ix.byQuestion[bestKey], bestScore, true
}

// Normalize lower-cases, strips punctuation, and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity scores two normalized strings in [0,1] as the max of substring
// containment, token-set overlap, and edit-distance similarity. Containment
// dominates: a question fully contained in another is a near-match even
// when their lengths differ a lot.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}

	score := containmentScore(a, b)
	if s := tokenSetScore(a, b); s > score {
		score = s
	}
	if s := sequenceScore(a, b); s > score {
		score = s
	}
	return score
}

func containmentScore(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0
	}
	ratio := float64(len(shorter)) / float64(len(longer))
	return 0.9 + 0.1*ratio
}

func tokenSetScore(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	common := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	return float64(common) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// sequenceScore is 1 - (levenshtein distance / longer length).
func sequenceScore(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	longest := la
	if lb > longest {
		longest = lb
	}
	return 1.0 - float64(prev[lb])/float64(longest)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
