package content

import (
	"strings"
)

const (
	minSentence = 20
	maxSentence = 500
)

// claimMarkers flag sentences that read like checkable assertions
var claimMarkers = []string{
	"according to", "study", "studies", "research", "percent", "%",
	"million", "billion", "always", "never", "proven", "experts",
	"scientists", "officials", "report", "data", "is defined as",
	"caused", "causes", "first", "record",
}

// Sentences splits text into sentences (simple heuristic)
func Sentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= minSentence && len(sentence) <= maxSentence {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Only split when followed by whitespace, so decimals survive
			if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
				flush()
			}
		}
	}
	if current.Len() > 0 {
		flush()
	}

	return sentences
}

// KeySentences picks up to n sentences, preferring ones with claim markers.
// Short inputs that contain no full sentence are returned whole.
func KeySentences(text string, n int) []string {
	if n <= 0 {
		return []string{}
	}

	sentences := Sentences(text)
	if len(sentences) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			return []string{truncate(t, maxSentence)}
		}
		return []string{}
	}

	picked := make([]string, 0, n)
	used := make(map[int]bool)

	for i, s := range sentences {
		if len(picked) == n {
			break
		}
		lower := strings.ToLower(s)
		for _, marker := range claimMarkers {
			if strings.Contains(lower, marker) {
				picked = append(picked, s)
				used[i] = true
				break
			}
		}
	}

	for i, s := range sentences {
		if len(picked) == n {
			break
		}
		if !used[i] {
			picked = append(picked, s)
		}
	}

	return dedupe(picked)
}

func dedupe(sentences []string) []string {
	seen := make(map[string]bool)
	unique := make([]string, 0, len(sentences))

	for _, s := range sentences {
		key := strings.ToLower(strings.TrimSpace(s))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, s)
		}
	}

	return unique
}
