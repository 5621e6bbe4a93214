package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/bsdetector/internal/model"
)

// wireAnalysis is the JSON shape requested from providers
type wireAnalysis struct {
	Verdict       string         `json:"verdict"`
	Confidence    *float64       `json:"confidence"`
	Summary       string         `json:"summary"`
	KeyPoints     []string       `json:"keyPoints"`
	BiasScore     *float64       `json:"biasScore"`
	BiasDirection string         `json:"biasDirection"`
	Sentiment     *wireSentiment `json:"sentiment"`
}

type wireSentiment struct {
	Overall  string  `json:"overall"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// decodeAnalysis turns provider text into a validated analysis.
// The text is parsed as JSON directly, falling back to the first
// decodable balanced {...} object embedded in surrounding prose.
func decodeAnalysis(provider model.ProviderID, text string) (*model.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{Provider: provider, Reason: "empty content"}
	}

	raw := []byte(text)
	if !isJSONObject(raw) {
		extracted, ok := ExtractJSONObject(text)
		if !ok {
			return nil, &ParseError{Provider: provider, Reason: "no JSON object found"}
		}
		raw = []byte(extracted)
	}

	var wire wireAnalysis
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &SchemaError{Provider: provider, Field: "object", Reason: fmt.Sprintf("has wrongly typed fields: %v", err)}
	}

	return wire.toResult(provider)
}

func (w wireAnalysis) toResult(provider model.ProviderID) (*model.AnalysisResult, error) {
	verdict := normalizeVerdict(w.Verdict)
	if !verdict.Valid() {
		return nil, &SchemaError{Provider: provider, Field: "verdict", Reason: fmt.Sprintf("%q is not a known verdict", w.Verdict)}
	}
	if w.Confidence == nil {
		return nil, &SchemaError{Provider: provider, Field: "confidence", Reason: "is missing"}
	}

	result := &model.AnalysisResult{
		Verdict:       verdict,
		Confidence:    clampRound(*w.Confidence, 0, 100),
		Summary:       strings.TrimSpace(w.Summary),
		KeyPoints:     cleanPoints(w.KeyPoints),
		BiasDirection: strings.TrimSpace(w.BiasDirection),
	}

	if w.BiasScore != nil {
		score := clampRound(*w.BiasScore, -100, 100)
		result.BiasScore = &score
	}

	if w.Sentiment != nil {
		overall := model.Mood(strings.ToLower(strings.TrimSpace(w.Sentiment.Overall)))
		if !overall.Valid() {
			return nil, &SchemaError{Provider: provider, Field: "sentiment.overall", Reason: fmt.Sprintf("%q is not a known sentiment", w.Sentiment.Overall)}
		}
		result.Sentiment = &model.Sentiment{
			Overall:  overall,
			Positive: clampRound(w.Sentiment.Positive, 0, 100),
			Neutral:  clampRound(w.Sentiment.Neutral, 0, 100),
			Negative: clampRound(w.Sentiment.Negative, 0, 100),
		}
	}

	return result, nil
}

// ValidateResult checks a complete result against the analysis schema
func ValidateResult(r *model.AnalysisResult) error {
	if r == nil {
		return &SchemaError{Field: "result", Reason: "is empty"}
	}
	if !r.Verdict.Valid() {
		return &SchemaError{Field: "verdict", Reason: fmt.Sprintf("%q is not a known verdict", r.Verdict)}
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return &SchemaError{Field: "confidence", Reason: fmt.Sprintf("%d is outside 0-100", r.Confidence)}
	}
	if r.BiasScore != nil && (*r.BiasScore < -100 || *r.BiasScore > 100) {
		return &SchemaError{Field: "biasScore", Reason: fmt.Sprintf("%d is outside -100..100", *r.BiasScore)}
	}
	if r.Sentiment != nil && !r.Sentiment.Overall.Valid() {
		return &SchemaError{Field: "sentiment.overall", Reason: fmt.Sprintf("%q is not a known sentiment", r.Sentiment.Overall)}
	}
	return nil
}

// ExtractJSONObject returns the first balanced {...} substring of text
// that decodes as a JSON object. Braces inside string literals are ignored.
func ExtractJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := matchBrace(text, start); ok {
			candidate := text[start : end+1]
			if isJSONObject([]byte(candidate)) {
				return candidate, true
			}
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace finds the index of the brace closing the one at start
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func isJSONObject(data []byte) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(data, &obj) == nil
}

// normalizeVerdict accepts minor spelling variants such as "Likely True"
func normalizeVerdict(v string) model.Verdict {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.NewReplacer(" ", "-", "_", "-").Replace(v)
	return model.Verdict(v)
}

// clampRound clamps before converting; int() of an out-of-range float is undefined
func clampRound(v float64, lo, hi int) int {
	v = math.Max(float64(lo), math.Min(float64(hi), v))
	return int(math.Round(v))
}

func cleanPoints(points []string) []string {
	cleaned := make([]string, 0, len(points))
	for _, p := range points {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
