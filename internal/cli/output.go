package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/bsdetector/internal/analysis"
	"github.com/ppiankov/bsdetector/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

var verdictLabels = map[model.Verdict]string{
	model.VerdictTrue:        "TRUE",
	model.VerdictLikelyTrue:  "LIKELY TRUE",
	model.VerdictUncertain:   "UNCERTAIN",
	model.VerdictLikelyFalse: "LIKELY FALSE",
	model.VerdictFalse:       "FALSE",
}

func printResult(w io.Writer, r *model.AnalysisResult) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Verdict:     %s (%d%% confidence)\n", verdictLabels[r.Verdict], r.Confidence)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	if r.Summary != "" {
		fmt.Fprintln(w, wrap(r.Summary, 72, "  "))
		fmt.Fprintln(w)
	}

	if len(r.KeyPoints) > 0 {
		fmt.Fprintln(w, "  Key points:")
		for _, p := range r.KeyPoints {
			fmt.Fprintf(w, "    • %s\n", p)
		}
		fmt.Fprintln(w)
	}

	if r.BiasScore != nil {
		fmt.Fprintf(w, "  Bias:        %+d (%s)\n", *r.BiasScore, r.BiasDirection)
	}
	if r.Sentiment != nil {
		fmt.Fprintf(w, "  Tone:        %s\n", formatSentiment(r.Sentiment))
	}
	printModel(w, r)
}

func printSentiment(w io.Writer, r *model.AnalysisResult) {
	fmt.Fprintln(w, rule)
	if r.Sentiment != nil {
		fmt.Fprintf(w, "  Tone:        %s\n", strings.ToUpper(string(r.Sentiment.Overall)))
	} else {
		fmt.Fprintln(w, "  Tone:        not reported")
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	if r.Sentiment != nil {
		fmt.Fprintf(w, "  %s\n\n", formatSentiment(r.Sentiment))
	}
	if r.Summary != "" {
		fmt.Fprintln(w, wrap(r.Summary, 72, "  "))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  Verdict:     %s (%d%% confidence)\n", verdictLabels[r.Verdict], r.Confidence)
	printModel(w, r)
}

func printModel(w io.Writer, r *model.AnalysisResult) {
	if r.ModelUsed == analysis.MockModel {
		fmt.Fprintln(w, "  Model:       demo (no provider configured; run 'bsdetector models set')")
		return
	}
	if r.ModelUsed != "" {
		fmt.Fprintf(w, "  Model:       %s\n", r.ModelUsed)
	}
}

func formatSentiment(s *model.Sentiment) string {
	return fmt.Sprintf("%s (positive %d%%, neutral %d%%, negative %d%%)", s.Overall, s.Positive, s.Neutral, s.Negative)
}

// wrap breaks text into indented lines of at most width runes
func wrap(text string, width int, indent string) string {
	var b strings.Builder
	line := 0
	for i, word := range strings.Fields(text) {
		n := len([]rune(word))
		if i > 0 && line+1+n > width {
			b.WriteString("\n")
			line = 0
		}
		if line == 0 {
			b.WriteString(indent)
		} else {
			b.WriteString(" ")
			line++
		}
		b.WriteString(word)
		line += n
	}
	return b.String()
}
