// Package match scores catalog search results against the user's query so
// the search page can drop junk and show the closest titles first.
package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"

	"reeltrack/services/catalog"
)

// Normalize lowercases, romanizes and strips punctuation from a title so
// comparisons survive accents, case and separator differences.
func Normalize(title string) string {
	romanized := unidecode.Unidecode(title)

	var b strings.Builder
	for _, r := range strings.ToLower(romanized) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns token overlap between two titles in [0, 1], using the
// Dice coefficient over normalized word sets.
func Similarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	shared := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(tokensA)+len(tokensB))
}

func tokenSet(value string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, token := range strings.Fields(Normalize(value)) {
		set[token] = struct{}{}
	}
	return set
}

// SearchResults filters a multi-search page down to movie/TV entries and
// orders them by relevance to the query. Person results and untitled
// entries are dropped.
func SearchResults(items []catalog.MediaItem, query string) []catalog.MediaItem {
	type scored struct {
		item  catalog.MediaItem
		score float64
	}

	kept := make([]scored, 0, len(items))
	for _, item := range items {
		if item.MediaType != "" && item.MediaType != "movie" && item.MediaType != "tv" {
			continue
		}
		title := item.DisplayTitle()
		if strings.TrimSpace(title) == "" {
			continue
		}
		kept = append(kept, scored{item: item, score: Similarity(title, query)})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].item.Popularity > kept[j].item.Popularity
	})

	results := make([]catalog.MediaItem, 0, len(kept))
	for _, s := range kept {
		results = append(results, s.item)
	}
	return results
}
