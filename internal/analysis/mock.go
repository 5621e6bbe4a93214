package analysis

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/bsdetector/internal/content"
	"github.com/ppiankov/bsdetector/internal/model"
)

// MockModel is the modelUsed value of generated results
const MockModel = "mock"

var mockSummaries = map[model.Mode]map[model.Verdict]string{
	model.ModeVoter: {
		model.VerdictTrue:        "This checks out. The main points match what is widely reported.",
		model.VerdictLikelyTrue:  "Mostly holds up, though a detail or two could not be confirmed.",
		model.VerdictUncertain:   "Hard to say. There is not enough solid information either way.",
		model.VerdictLikelyFalse: "Probably misleading. Key parts do not line up with known facts.",
		model.VerdictFalse:       "This is false. The central claim contradicts established facts.",
	},
	model.ModeProfessional: {
		model.VerdictTrue:        "The central assertion is consistent with the available primary evidence.",
		model.VerdictLikelyTrue:  "The claim is broadly supported; secondary details lack independent corroboration.",
		model.VerdictUncertain:   "Evidence is insufficient or conflicting; no determination is warranted.",
		model.VerdictLikelyFalse: "The claim relies on selective framing and is contradicted by the weight of evidence.",
		model.VerdictFalse:       "The central assertion is contradicted by verifiable primary sources.",
	},
}

// MockGenerator produces randomized, schema-valid results without network access.
// It is safe for concurrent use.
type MockGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewMockGenerator creates a generator. A nil source seeds from the clock.
func NewMockGenerator(src rand.Source) *MockGenerator {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &MockGenerator{rng: rand.New(src), now: time.Now}
}

// Generate returns a mock analysis of text
func (g *MockGenerator) Generate(text string, mode model.Mode) *model.AnalysisResult {
	if !mode.Valid() {
		mode = model.ModeVoter
	}

	g.mu.Lock()
	verdict := model.Verdicts[g.rng.IntN(len(model.Verdicts))]
	confidence := 40 + g.rng.IntN(56)
	bias := g.rng.IntN(61) - 30
	positive, neutral, negative := g.rng.IntN(101), g.rng.IntN(101), g.rng.IntN(101)
	g.mu.Unlock()

	points := make([]string, 0, 4)
	for _, s := range content.KeySentences(text, 3) {
		points = append(points, fmt.Sprintf("Examined: %q", s))
	}
	points = append(points, "Demo result: configure a provider API key for a real analysis.")

	return &model.AnalysisResult{
		ID:            uuid.NewString(),
		Content:       text,
		Verdict:       verdict,
		Confidence:    confidence,
		Summary:       mockSummaries[mode][verdict],
		KeyPoints:     points,
		BiasScore:     &bias,
		BiasDirection: biasDirection(bias),
		Sentiment: &model.Sentiment{
			Overall:  overallMood(positive, neutral, negative),
			Positive: positive,
			Neutral:  neutral,
			Negative: negative,
		},
		CreatedAt: g.now().UTC(),
		ModelUsed: MockModel,
	}
}

func biasDirection(score int) string {
	switch {
	case score <= -10:
		return "left-leaning"
	case score >= 10:
		return "right-leaning"
	default:
		return "neutral"
	}
}

func overallMood(positive, neutral, negative int) model.Mood {
	switch {
	case positive > neutral && positive > negative:
		return model.MoodPositive
	case negative > neutral && negative > positive:
		return model.MoodNegative
	default:
		return model.MoodNeutral
	}
}
