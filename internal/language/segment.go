package language

import (
	"strings"
	"unicode"
)

// segment is a sentence or block of text.
type segment struct {
	text  string
	index int
}

// splitSegments splits text on blank lines, markdown headings and sentence
// terminators. Empty segments are dropped.
func splitSegments(text string) []segment {
	var blocks []string
	var current []string

	flush := func() {
		if t := strings.TrimSpace(strings.Join(current, " ")); t != "" {
			blocks = append(blocks, t)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			flush()
			current = append(current, strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()

	var out []segment
	for _, b := range blocks {
		for _, s := range splitSentences(b) {
			out = append(out, segment{text: s, index: len(out)})
		}
	}
	return out
}

func splitSentences(block string) []string {
	var out []string
	start := 0
	runes := []rune(block)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Keep decimals like 3.5 together.
		if r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// words lower-cases text and splits it into word tokens. Apostrophes inside
// a word are kept.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
