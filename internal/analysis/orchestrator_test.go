package analysis

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/bsdetector/internal/llm"
	"github.com/ppiankov/bsdetector/internal/model"
)

type staticConfigs struct {
	configs  model.ProviderConfigs
	selected string
	err      error
}

func (s staticConfigs) ProviderConfigs(ctx context.Context) (model.ProviderConfigs, error) {
	return s.configs, s.err
}

func (s staticConfigs) SelectedModel(ctx context.Context) (string, error) {
	return s.selected, nil
}

// recordingDirect captures the last call and returns a fixed result
type recordingDirect struct {
	calls atomic.Int32
	last  llm.Request
	err   error
}

func (r *recordingDirect) Analyze(ctx context.Context, req llm.Request) (*model.AnalysisResult, error) {
	r.calls.Add(1)
	r.last = req
	if r.err != nil {
		return nil, r.err
	}
	return &model.AnalysisResult{
		ID:         "r-1",
		Content:    req.Content,
		Verdict:    model.VerdictTrue,
		Confidence: 70,
		KeyPoints:  []string{},
		ModelUsed:  req.Config.ModelID,
	}, nil
}

func usable(provider model.ProviderID, modelID string) model.ProviderConfig {
	return model.ProviderConfig{Provider: provider, ModelID: modelID, APIKey: "key-" + string(provider), Enabled: true}
}

func TestAnalyze_NoUsableConfigReturnsMock(t *testing.T) {
	direct := &recordingDirect{}
	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{
			model.ProviderOpenAI: {Provider: model.ProviderOpenAI, ModelID: "gpt-4o", APIKey: "   ", Enabled: true},
			model.ProviderXAI:    {Provider: model.ProviderXAI, ModelID: "grok-3", APIKey: "k", Enabled: false},
		}},
		Direct: direct,
	})

	result, err := o.Analyze(context.Background(), Request{Content: "the sky is green"})
	if err != nil {
		t.Fatalf("Expected mock result, got error %v", err)
	}
	if direct.calls.Load() != 0 {
		t.Errorf("Expected no provider call, got %d", direct.calls.Load())
	}
	if result.ModelUsed != MockModel {
		t.Errorf("Expected mock model, got %q", result.ModelUsed)
	}
	if result.Content != "the sky is green" {
		t.Errorf("Expected content echoed, got %q", result.Content)
	}
	if err := llm.ValidateResult(result); err != nil {
		t.Errorf("Mock result is not schema-valid: %v", err)
	}
}

func TestAnalyze_ConfigReadFailureReturnsMock(t *testing.T) {
	direct := &recordingDirect{}
	o := NewOrchestrator(Options{
		Configs: staticConfigs{err: errors.New("corrupt settings")},
		Direct:  direct,
	})

	result, err := o.Analyze(context.Background(), Request{Content: "claim"})
	if err != nil {
		t.Fatalf("Expected mock result, got %v", err)
	}
	if result.ModelUsed != MockModel || direct.calls.Load() != 0 {
		t.Errorf("Expected mock without provider call, got %q after %d calls", result.ModelUsed, direct.calls.Load())
	}
}

func TestAnalyze_ProviderErrorPropagatesWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	cfg := usable(model.ProviderOpenAI, "gpt-4o-mini")
	cfg.BaseURL = server.URL

	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{model.ProviderOpenAI: cfg}},
		Direct:  llm.NewClient(server.Client(), 5*time.Second, nil),
	})

	_, err := o.Analyze(context.Background(), Request{Content: "claim"})

	var providerErr *llm.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Expected ProviderError, got %T: %v", err, err)
	}
	if providerErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", providerErr.StatusCode)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", hits.Load())
	}
}

func TestAnalyze_FirstUsableInProviderOrder(t *testing.T) {
	direct := &recordingDirect{}
	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{
			model.ProviderXAI:       {Provider: model.ProviderXAI, ModelID: "grok-3", Enabled: true},
			model.ProviderAnthropic: usable(model.ProviderAnthropic, "claude-3-5-sonnet-20241022"),
			model.ProviderOpenAI:    usable(model.ProviderOpenAI, "gpt-4o"),
		}},
		Direct: direct,
	})

	result, err := o.Analyze(context.Background(), Request{Content: "claim"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if direct.last.Config.Provider != model.ProviderOpenAI {
		t.Errorf("Expected openai, got %s", direct.last.Config.Provider)
	}
	if result.ModelUsed != "GPT-4o" {
		t.Errorf("Expected display name GPT-4o, got %q", result.ModelUsed)
	}
}

func TestAnalyze_RequestedModelResolvesProvider(t *testing.T) {
	direct := &recordingDirect{}
	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{
			model.ProviderOpenAI:    usable(model.ProviderOpenAI, "gpt-4o"),
			model.ProviderAnthropic: usable(model.ProviderAnthropic, "claude-3-5-sonnet-20241022"),
		}},
		Direct: direct,
	})

	result, err := o.Analyze(context.Background(), Request{Content: "claim", ModelID: "claude-3-5-haiku-20241022"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if direct.last.Config.Provider != model.ProviderAnthropic || direct.last.Config.ModelID != "claude-3-5-haiku-20241022" {
		t.Errorf("Expected anthropic haiku, got %v", direct.last.Config)
	}
	if result.ModelUsed != "Claude 3.5 Haiku" {
		t.Errorf("Unexpected model used %q", result.ModelUsed)
	}
}

func TestAnalyze_RequestedModelWithoutUsableConfigIsMock(t *testing.T) {
	direct := &recordingDirect{}
	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{
			model.ProviderOpenAI: usable(model.ProviderOpenAI, "gpt-4o"),
		}},
		Direct: direct,
	})

	result, err := o.Analyze(context.Background(), Request{Content: "claim", ModelID: "gemini-1.5-pro"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.ModelUsed != MockModel || direct.calls.Load() != 0 {
		t.Errorf("Expected mock for unusable requested model, got %q", result.ModelUsed)
	}
}

func TestAnalyze_StaleSelectionFallsBack(t *testing.T) {
	direct := &recordingDirect{}
	o := NewOrchestrator(Options{
		Configs: staticConfigs{
			configs:  model.ProviderConfigs{model.ProviderGoogle: usable(model.ProviderGoogle, "gemini-1.5-flash")},
			selected: "grok-3",
		},
		Direct: direct,
	})

	if _, err := o.Analyze(context.Background(), Request{Content: "claim"}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if direct.last.Config.Provider != model.ProviderGoogle {
		t.Errorf("Expected fallback to google, got %s", direct.last.Config.Provider)
	}
}

func TestAnalyze_CustomModelShownRaw(t *testing.T) {
	direct := &recordingDirect{}
	custom := usable(model.ProviderCustom, "local-llama")
	custom.BaseURL = "http://localhost:1234/v1"

	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{model.ProviderCustom: custom}, selected: "local-llama"},
		Direct:  direct,
	})

	result, err := o.Analyze(context.Background(), Request{Content: "claim"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.ModelUsed != "local-llama" {
		t.Errorf("Expected raw model id, got %q", result.ModelUsed)
	}
}

func TestAnalyze_Persona(t *testing.T) {
	direct := &recordingDirect{}
	cfg := usable(model.ProviderOpenAI, "gpt-4o")
	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{model.ProviderOpenAI: cfg}},
		Direct:  direct,
	})

	if _, err := o.Analyze(context.Background(), Request{Content: "claim", Mode: model.ModeProfessional}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if direct.last.Persona != llm.DefaultPersona(model.ModeProfessional) {
		t.Errorf("Expected professional persona, got %q", direct.last.Persona)
	}

	cfg.Persona = "Answer like a sports commentator"
	o.configs = staticConfigs{configs: model.ProviderConfigs{model.ProviderOpenAI: cfg}}
	if _, err := o.Analyze(context.Background(), Request{Content: "claim", Mode: model.ModeProfessional}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if direct.last.Persona != "Answer like a sports commentator" {
		t.Errorf("Expected config persona to win, got %q", direct.last.Persona)
	}
}

func TestAnalyze_InputErrors(t *testing.T) {
	o := NewOrchestrator(Options{Configs: staticConfigs{}})

	var inputErr *InputError
	if _, err := o.Analyze(context.Background(), Request{Content: "  <p></p> "}); !errors.As(err, &inputErr) {
		t.Errorf("Expected InputError for empty content, got %v", err)
	}
	if _, err := o.Analyze(context.Background(), Request{Content: "claim", Mode: "pundit"}); !errors.As(err, &inputErr) {
		t.Errorf("Expected InputError for unknown mode, got %v", err)
	}
}

func TestAnalyze_NormalizesContent(t *testing.T) {
	direct := &recordingDirect{}
	o := NewOrchestrator(Options{
		Configs: staticConfigs{configs: model.ProviderConfigs{model.ProviderOpenAI: usable(model.ProviderOpenAI, "gpt-4o")}},
		Direct:  direct,
	})

	if _, err := o.Analyze(context.Background(), Request{Content: "<p>Taxes <script>x()</script>doubled.</p>"}); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if direct.last.Content != "Taxes doubled." {
		t.Errorf("Expected normalized content, got %q", direct.last.Content)
	}
}

func TestMockGenerator_AlwaysSchemaValid(t *testing.T) {
	g := NewMockGenerator(rand.NewPCG(1, 2))
	seen := map[model.Verdict]bool{}

	for i := 0; i < 500; i++ {
		mode := model.ModeVoter
		if i%2 == 1 {
			mode = model.ModeProfessional
		}
		r := g.Generate("According to a study, coffee cures everything. It is sold everywhere now.", mode)
		if err := llm.ValidateResult(r); err != nil {
			t.Fatalf("iteration %d: invalid mock result: %v", i, err)
		}
		if r.Summary == "" || len(r.KeyPoints) == 0 {
			t.Fatalf("iteration %d: expected summary and key points, got %+v", i, r)
		}
		seen[r.Verdict] = true
	}

	for _, v := range model.Verdicts {
		if !seen[v] {
			t.Errorf("verdict %s never generated", v)
		}
	}
}

func TestMockGenerator_KeyPointsFromContent(t *testing.T) {
	g := NewMockGenerator(rand.NewPCG(3, 4))
	r := g.Generate("Officials report that crime fell by 40 percent last year.", model.ModeVoter)

	if !strings.Contains(r.KeyPoints[0], "crime fell by 40 percent") {
		t.Errorf("Expected key point drawn from content, got %v", r.KeyPoints)
	}
}
