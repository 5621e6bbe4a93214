package model

import "time"

// Verdict is one of five ordinal truthfulness categories applied to a claim
type Verdict string

const (
	VerdictTrue        Verdict = "true"
	VerdictLikelyTrue  Verdict = "likely-true"
	VerdictUncertain   Verdict = "uncertain"
	VerdictLikelyFalse Verdict = "likely-false"
	VerdictFalse       Verdict = "false"
)

// Verdicts lists all verdicts from most to least truthful
var Verdicts = []Verdict{
	VerdictTrue,
	VerdictLikelyTrue,
	VerdictUncertain,
	VerdictLikelyFalse,
	VerdictFalse,
}

// Valid reports whether v is one of the five known verdicts
func (v Verdict) Valid() bool {
	for _, known := range Verdicts {
		if v == known {
			return true
		}
	}
	return false
}

// Mood is the overall tone of a sentiment reading
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodNegative Mood = "negative"
)

// Valid reports whether m is a known mood
func (m Mood) Valid() bool {
	return m == MoodPositive || m == MoodNeutral || m == MoodNegative
}

// Sentiment is the tone breakdown of analyzed content.
// The three shares are independent readings and need not sum to 100.
type Sentiment struct {
	Overall  Mood `json:"overall"`
	Positive int  `json:"positive"`
	Neutral  int  `json:"neutral"`
	Negative int  `json:"negative"`
}

// AnalysisResult is the normalized verdict for one piece of content.
// It is never mutated after creation; a correction is a new result.
type AnalysisResult struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	Verdict       Verdict    `json:"verdict"`
	Confidence    int        `json:"confidence"`
	Summary       string     `json:"summary"`
	KeyPoints     []string   `json:"keyPoints"`
	BiasScore     *int       `json:"biasScore,omitempty"`
	BiasDirection string     `json:"biasDirection,omitempty"`
	Sentiment     *Sentiment `json:"sentiment,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ModelUsed     string     `json:"modelUsed,omitempty"`
}

// Mode selects the register of an analysis
type Mode string

const (
	ModeVoter        Mode = "voter"
	ModeProfessional Mode = "professional"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	return m == ModeVoter || m == ModeProfessional
}
