package model

import "fmt"

// HistoryType selects one of the two history logs
type HistoryType string

const (
	HistoryValidation HistoryType = "validation"
	HistorySentiment  HistoryType = "sentiment"
)

// HistoryTypes lists both history logs
var HistoryTypes = []HistoryType{HistoryValidation, HistorySentiment}

// ParseHistoryType converts a user-supplied name into a HistoryType
func ParseHistoryType(name string) (HistoryType, error) {
	switch HistoryType(name) {
	case HistoryValidation, HistorySentiment:
		return HistoryType(name), nil
	default:
		return "", fmt.Errorf("unknown history type: %s (supported: validation, sentiment)", name)
	}
}

// LocalKey is the key-value entry holding the local list
func (t HistoryType) LocalKey() string {
	return "bsd_" + string(t) + "_history"
}

// HistoryItem is one persisted analysis. Validation items carry
// claim/verdict/score/mode, sentiment items carry topic and the tone shares.
// Items are append-only; the id is the only dedup key.
type HistoryItem struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds

	Claim   string  `json:"claim,omitempty"`
	Verdict string  `json:"verdict,omitempty"`
	Score   float64 `json:"score,omitempty"` // 0..1
	Mode    string  `json:"mode,omitempty"`

	Topic    string `json:"topic,omitempty"`
	Overall  string `json:"overall,omitempty"`
	Positive int    `json:"positive,omitempty"`
	Neutral  int    `json:"neutral,omitempty"`
	Negative int    `json:"negative,omitempty"`
}

// ValidationItem projects a result into a validation history item
func ValidationItem(r *AnalysisResult, mode Mode) HistoryItem {
	return HistoryItem{
		Claim:   r.Content,
		Verdict: string(r.Verdict),
		Score:   float64(r.Confidence) / 100,
		Mode:    string(mode),
	}
}

// SentimentItem projects a result into a sentiment history item.
// ok is false when the result carries no sentiment.
func SentimentItem(r *AnalysisResult) (HistoryItem, bool) {
	if r.Sentiment == nil {
		return HistoryItem{}, false
	}
	return HistoryItem{
		Topic:    r.Content,
		Overall:  string(r.Sentiment.Overall),
		Positive: r.Sentiment.Positive,
		Neutral:  r.Sentiment.Neutral,
		Negative: r.Sentiment.Negative,
	}, true
}
