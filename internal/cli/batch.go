package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bsdetector/internal/model"
	"github.com/ppiankov/bsdetector/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchMode    string
	batchModel   string
	batchJSON    bool
	batchNoSave  bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many claims from a file in parallel",
	Long: `Batch analyzes claims concurrently:
- Read claims from the input file (one per line, # starts a comment)
- Analyze them with a bounded pool of workers
- Pace provider calls with a per-provider rate limit
- Record each success in the validation history

Example:
  bsdetector batch claims.txt
  bsdetector batch claims.txt --concurrency 8 --timeout 20m
  bsdetector batch claims.txt --json > results.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchMode, "mode", "", "analysis mode: voter or professional")
	batchCmd.Flags().StringVar(&batchModel, "model", "", "model id to use (default: selected model)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print one JSON result per line")
	batchCmd.Flags().BoolVar(&batchNoSave, "no-save", false, "do not record results in history")
}

// batchLine is one --json output record
type batchLine struct {
	Claim  string                `json:"claim"`
	Result *model.AnalysisResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	mode, err := a.mode(batchMode)
	if err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Concurrency.Workers
	}

	claims, err := worker.ReadClaimsFromFile(file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	// a mock run makes no provider calls and needs no pacing
	limitKey := ""
	provider, live := a.orchestrator.ActiveProvider(ctx, batchModel)
	if live {
		limitKey = string(provider)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  bsdetector batch\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Claims:       %d\n", len(claims))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", mode)
	if live {
		fmt.Fprintf(os.Stderr, "  Provider:     %s (%.1f req/s)\n", provider, a.cfg.Concurrency.RequestsPerSecond)
	} else {
		fmt.Fprintf(os.Stderr, "  Provider:     none (demo results)\n")
	}
	fmt.Fprintf(os.Stderr, "\n")

	var record worker.Recorder
	if !batchNoSave {
		record = func(ctx context.Context, result *model.AnalysisResult) error {
			saved, err := a.history.Save(ctx, model.HistoryValidation, model.ValidationItem(result, mode))
			if err != nil {
				return err
			}
			return saved.SyncErr
		}
	}

	processor := worker.NewBatchProcessor(a.orchestrator, worker.BatchOptions{
		Workers:  workers,
		Mode:     mode,
		ModelID:  batchModel,
		Limiter:  worker.NewLimiter(a.cfg.Concurrency.RequestsPerSecond, a.cfg.Concurrency.Burst),
		LimitKey: limitKey,
		Record:   record,
		Logger:   a.logger.WithPrefix("batch"),
	})

	results := processor.ProcessClaims(ctx, claims)

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	successCount := 0
	failureCount := 0

	for _, r := range results {
		if r.Error != nil {
			failureCount++
			if batchJSON {
				_ = enc.Encode(batchLine{Claim: r.Claim, Error: r.Error.Error()})
			} else {
				fmt.Fprintf(out, "✗ %s: %v\n", r.Claim, r.Error)
			}
			continue
		}

		successCount++
		if r.RecordErr != nil {
			a.logger.Warn("history not fully saved", "claim", r.Claim, "error", r.RecordErr)
		}
		if batchJSON {
			_ = enc.Encode(batchLine{Claim: r.Claim, Result: r.Result})
		} else {
			fmt.Fprintf(out, "✓ %-12s %3d%%  %s\n", verdictLabels[r.Result.Verdict], r.Result.Confidence, r.Claim)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "%s\n", rule)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
