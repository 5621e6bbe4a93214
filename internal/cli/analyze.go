package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bsdetector/internal/analysis"
	"github.com/ppiankov/bsdetector/internal/model"
)

var (
	analyzeMode    string
	analyzeModel   string
	analyzeFile    string
	analyzeURL     string
	analyzeJSON    bool
	analyzeNoSave  bool
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [claim]",
	Short: "Check a claim or article for veracity",
	Long: `Analyze sends a claim or article to the active provider and prints a
verdict (true, likely-true, uncertain, likely-false, false), a confidence
score, a summary, key points, bias and tone.

The content comes from the arguments, from --file, from stdin with --file -,
or from a web page with --url. HTML is reduced to its visible text.

Example:
  bsdetector analyze "The Great Wall of China is visible from space"
  bsdetector analyze --file article.html --mode professional
  bsdetector analyze --url https://example.org/news/story
  bsdetector analyze --model claude-3-5-haiku-20241022 --json "Inflation fell to 2% in 2024"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args, model.HistoryValidation)
	},
}

// sentimentCmd represents the sentiment command
var sentimentCmd = &cobra.Command{
	Use:   "sentiment [text]",
	Short: "Read the tone of a text",
	Long: `Sentiment runs the same analysis as analyze, reports the tone breakdown
first and records the reading in the sentiment history.

Example:
  bsdetector sentiment "Markets rallied on strong earnings"
  bsdetector sentiment --file speech.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args, model.HistorySentiment)
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, sentimentCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVar(&analyzeMode, "mode", "", "analysis mode: voter or professional (default from config)")
		c.Flags().StringVar(&analyzeModel, "model", "", "model id to use (default: selected model)")
		c.Flags().StringVarP(&analyzeFile, "file", "f", "", "read content from a file (- for stdin)")
		c.Flags().StringVar(&analyzeURL, "url", "", "fetch the content from a web page")
		c.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
		c.Flags().BoolVar(&analyzeNoSave, "no-save", false, "do not record the result in history")
		c.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall timeout")
	}
}

func runAnalysis(cmd *cobra.Command, args []string, typ model.HistoryType) error {
	var text string
	if analyzeURL != "" {
		if analyzeFile != "" || len(args) > 0 {
			return fmt.Errorf("--url cannot be combined with --file or a claim argument")
		}
	} else {
		var err error
		if text, err = readContent(args, analyzeFile, cmd.InOrStdin()); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if analyzeURL != "" {
		page, err := a.fetcher.FetchWithRetry(ctx, analyzeURL)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", analyzeURL, err)
		}
		a.logger.Debug("page fetched", "url", page.FinalURL, "bytes", len(page.Body), "content_type", page.ContentType)
		text = page.Body
	}

	mode, err := a.mode(analyzeMode)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d characters (%s mode)...\n", len(text), mode)
	}

	result, err := a.orchestrator.Analyze(ctx, analysis.Request{
		Content: text,
		ModelID: analyzeModel,
		Mode:    mode,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if !analyzeNoSave {
		a.record(ctx, typ, result, mode)
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if typ == model.HistorySentiment {
		printSentiment(out, result)
		return nil
	}
	printResult(out, result)
	return nil
}

// record saves a result to history. Failures are logged, never returned:
// the analysis itself succeeded.
func (a *app) record(ctx context.Context, typ model.HistoryType, result *model.AnalysisResult, mode model.Mode) {
	item := model.ValidationItem(result, mode)
	if typ == model.HistorySentiment {
		var ok bool
		if item, ok = model.SentimentItem(result); !ok {
			a.logger.Warn("result has no sentiment, not recorded")
			return
		}
	}

	saved, err := a.history.Save(ctx, typ, item)
	if err != nil {
		a.logger.Warn("saving history failed", "type", typ, "error", err)
		return
	}
	if !saved.Synced() {
		a.logger.Warn("history saved locally only", "type", typ, "error", saved.SyncErr)
	}
}

// readContent takes the content from args, a file, or stdin
func readContent(args []string, file string, stdin io.Reader) (string, error) {
	var text string
	switch {
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		text = string(data)
	default:
		text = strings.Join(args, " ")
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("nothing to analyze: pass a claim, --file <path> or --file -")
	}
	return text, nil
}
