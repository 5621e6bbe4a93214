package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/bsdetector/internal/analysis"
	"github.com/ppiankov/bsdetector/internal/model"
)

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*model.AnalysisResult, error)
}

// Recorder persists a successful analysis. A returned error is reported
// on the claim result but does not fail it.
type Recorder func(ctx context.Context, result *model.AnalysisResult) error

// ClaimJob analyzes a single claim
type ClaimJob struct {
	Index    int
	Claim    string
	ModelID  string
	Mode     model.Mode
	Analyzer Analyzer
	Limiter  *Limiter
	LimitKey string
	Record   Recorder
}

// Execute executes the claim job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	res := &ClaimResult{Index: j.Index, Claim: j.Claim}

	if j.Limiter != nil && j.LimitKey != "" {
		if err := j.Limiter.Wait(ctx, j.LimitKey); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	result, err := j.Analyzer.Analyze(ctx, analysis.Request{
		Content: j.Claim,
		ModelID: j.ModelID,
		Mode:    j.Mode,
	})
	if err != nil {
		res.Error = err
		return res
	}
	res.Result = result

	if j.Record != nil {
		res.RecordErr = j.Record(ctx, result)
	}
	return res
}

// ClaimResult represents the result of a claim job
type ClaimResult struct {
	Index     int
	Claim     string
	Result    *model.AnalysisResult
	Error     error
	RecordErr error
}

// GetError returns the error from the claim result
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchOptions configures a BatchProcessor
type BatchOptions struct {
	Workers  int
	Mode     model.Mode
	ModelID  string
	Limiter  *Limiter
	LimitKey string // usually the active provider; empty disables pacing
	Record   Recorder
	Logger   *log.Logger
}

// BatchProcessor analyzes multiple claims concurrently
type BatchProcessor struct {
	analyzer Analyzer
	opts     BatchOptions
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, opts BatchOptions) *BatchProcessor {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &BatchProcessor{
		analyzer: analyzer,
		opts:     opts,
	}
}

// ProcessClaims analyzes claims concurrently. Results come back in input order.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(ctx, b.opts.Workers)
	pool.Start()

	for i, claim := range claims {
		job := &ClaimJob{
			Index:    i,
			Claim:    claim,
			ModelID:  b.opts.ModelID,
			Mode:     b.opts.Mode,
			Analyzer: b.analyzer,
			Limiter:  b.opts.Limiter,
			LimitKey: b.opts.LimitKey,
			Record:   b.opts.Record,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	ordered := make([]*ClaimResult, len(claims))
	for _, result := range results {
		r := result.(*ClaimResult)
		ordered[r.Index] = r
	}
	for i := range ordered {
		if ordered[i] == nil {
			ordered[i] = &ClaimResult{Index: i, Claim: claims[i], Error: fmt.Errorf("not analyzed: %w", context.Cause(ctx))}
		}
	}

	failed := 0
	for _, r := range ordered {
		if r.Error != nil {
			failed++
		}
	}
	b.opts.Logger.Info("batch complete", "claims", len(claims), "failed", failed)

	return ordered
}

// ProcessFile reads claims from a file and analyzes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file (one per line)
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
