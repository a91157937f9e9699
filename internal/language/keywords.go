package language

import (
	"sort"
	"strings"
	"unicode/utf8"
)

var stopWords = set(
	"a", "about", "above", "after", "again", "all", "also", "am", "an", "and", "any",
	"are", "as", "at", "be", "because", "been", "before", "being", "below", "between",
	"both", "but", "by", "can", "could", "did", "do", "does", "doing", "down", "during",
	"each", "even", "every", "few", "for", "from", "further", "get", "got", "had", "has",
	"have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "i", "i'm", "if", "in", "into", "is", "it", "it's", "its", "itself", "just",
	"me", "more", "most", "my", "myself", "no", "nor", "not", "now", "of", "off", "on",
	"once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
	"really", "same", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they", "this",
	"those", "through", "to", "too", "under", "until", "up", "very", "was", "we", "were",
	"what", "when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves", "today", "tonight",
	"yesterday", "tomorrow", "lot", "lots", "much", "many", "thing", "things",
	"don't", "dont", "can't", "cant", "didn't", "didnt", "let's", "lets", "yeah", "oh",
)

type candidate struct {
	term  string
	score float64
	first int
}

// extractKeywords ranks stop-word-free unigrams and bigrams by frequency,
// weighted towards terms that appear early. Bigrams count extra since they
// are more specific. limit <= 0 returns every candidate.
func extractKeywords(text string, limit int) []string {
	segs := splitSegments(text)
	if len(segs) == 0 {
		return nil
	}

	byTerm := map[string]*candidate{}
	pos := 0
	note := func(term string, weight float64) {
		c, ok := byTerm[term]
		if !ok {
			c = &candidate{term: term, first: pos}
			byTerm[term] = c
		}
		c.score += weight
	}

	for _, s := range segs {
		var prev string
		for _, w := range words(s.text) {
			w = strings.Trim(w, "'")
			if !isContentWord(w) {
				prev = ""
				pos++
				continue
			}
			note(w, 1)
			if prev != "" {
				note(prev+" "+w, 1.5)
			}
			prev = w
			pos++
		}
	}

	cands := make([]*candidate, 0, len(byTerm))
	for _, c := range byTerm {
		c.score *= 1 + 1/float64(c.first+1)
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].first != cands[j].first {
			return cands[i].first < cands[j].first
		}
		return cands[i].term < cands[j].term
	})

	if limit <= 0 || limit > len(cands) {
		limit = len(cands)
	}
	out := make([]string, 0, limit)
	for _, c := range cands[:limit] {
		out = append(out, c.term)
	}
	return out
}

func isContentWord(w string) bool {
	if utf8.RuneCountInString(w) < 2 {
		return false
	}
	_, stop := stopWords[w]
	return !stop
}
