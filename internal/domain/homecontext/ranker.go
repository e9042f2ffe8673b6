package homecontext

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Ranker orders fragments by relevance to query and keeps the top k.
type Ranker interface {
	Rank(ctx context.Context, homeID, query string, fragments []Fragment, k int) ([]Fragment, error)
}

// KeywordRanker scores fragments by query term overlap. Ties keep the
// snapshot order, so an empty query returns the first k fragments.
type KeywordRanker struct{}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "what": {}, "how": {}, "can": {},
	"you": {}, "my": {}, "our": {}, "this": {}, "that": {}, "would": {}, "should": {},
	"does": {}, "much": {}, "about": {}, "want": {}, "need": {}, "into": {}, "from": {},
}

func (KeywordRanker) Rank(_ context.Context, _ string, query string, fragments []Fragment, k int) ([]Fragment, error) {
	terms := queryTerms(query)
	type scored struct {
		fragment Fragment
		score    int
	}
	items := make([]scored, len(fragments))
	for i, f := range fragments {
		text := strings.ToLower(f.Text)
		score := 0
		for _, term := range terms {
			score += strings.Count(text, term)
		}
		items[i] = scored{fragment: f, score: score}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	if k <= 0 || k > len(items) {
		k = len(items)
	}
	out := make([]Fragment, k)
	for i := 0; i < k; i++ {
		out[i] = items[i].fragment
	}
	return out, nil
}

func queryTerms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}
