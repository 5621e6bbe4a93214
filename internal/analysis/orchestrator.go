package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/bsdetector/internal/content"
	"github.com/ppiankov/bsdetector/internal/llm"
	"github.com/ppiankov/bsdetector/internal/model"
)

// ConfigSource supplies provider settings. The orchestrator only reads it.
type ConfigSource interface {
	ProviderConfigs(ctx context.Context) (model.ProviderConfigs, error)
	SelectedModel(ctx context.Context) (string, error)
}

// Direct performs a provider call from this process
type Direct interface {
	Analyze(ctx context.Context, req llm.Request) (*model.AnalysisResult, error)
}

// Request is one analysis to run
type Request struct {
	Content string
	ModelID string // optional; resolves the provider through the catalog
	Mode    model.Mode
}

// Orchestrator picks a provider config and runs the analysis directly,
// through the proxy, or as a mock when nothing is usable
type Orchestrator struct {
	configs    ConfigSource
	direct     Direct
	proxy      *ProxyClient
	catalog    model.Catalog
	normalizer *content.Normalizer
	mock       *MockGenerator
	logger     *log.Logger
}

// Options configures an Orchestrator
type Options struct {
	Configs    ConfigSource
	Direct     Direct
	Proxy      *ProxyClient // nil calls providers directly
	Catalog    model.Catalog
	Normalizer *content.Normalizer
	Mock       *MockGenerator
	Logger     *log.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Catalog == nil {
		opts.Catalog = model.DefaultCatalog()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = content.NewNormalizer(0)
	}
	if opts.Mock == nil {
		opts.Mock = NewMockGenerator(nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Orchestrator{
		configs:    opts.Configs,
		direct:     opts.Direct,
		proxy:      opts.Proxy,
		catalog:    opts.Catalog,
		normalizer: opts.Normalizer,
		mock:       opts.Mock,
		logger:     opts.Logger,
	}
}

// Analyze runs one analysis. Without a usable provider config it returns a
// mock result and makes no network call. Provider, parse, schema and timeout
// errors from a real call are returned unchanged.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = model.ModeVoter
	}
	if !mode.Valid() {
		return nil, &InputError{Reason: fmt.Sprintf("unknown mode %q (supported: voter, professional)", req.Mode)}
	}

	text, err := o.normalizer.Normalize(req.Content)
	if err != nil {
		if errors.Is(err, content.ErrEmpty) {
			return nil, &InputError{Reason: "content is empty"}
		}
		return nil, &InputError{Reason: err.Error()}
	}

	cfg, ok := o.resolve(ctx, req.ModelID)
	if !ok {
		o.logger.Info("no usable provider configured, returning mock result")
		return o.mock.Generate(text, mode), nil
	}

	persona := strings.TrimSpace(cfg.Persona)
	if persona == "" {
		persona = llm.DefaultPersona(mode)
	}
	call := llm.Request{Content: text, Persona: persona, Config: cfg}

	started := time.Now()
	var result *model.AnalysisResult
	if o.proxy != nil {
		result, err = o.proxy.Analyze(ctx, call, mode)
	} else {
		result, err = o.direct.Analyze(ctx, call)
	}
	if err != nil {
		return nil, err
	}

	modelID := result.ModelUsed
	if modelID == "" {
		modelID = cfg.ModelID
	}
	result.ModelUsed = o.catalog.DisplayName(modelID)

	o.logger.Debug("analysis complete",
		"provider", cfg.Provider,
		"model", result.ModelUsed,
		"proxy", o.proxy != nil,
		"duration", time.Since(started).Round(time.Millisecond))

	return result, nil
}

// ActiveProvider reports the provider an analysis of modelID would call.
// ok is false when the analysis would return a mock result.
func (o *Orchestrator) ActiveProvider(ctx context.Context, modelID string) (model.ProviderID, bool) {
	cfg, ok := o.resolve(ctx, modelID)
	return cfg.Provider, ok
}

// resolve picks the active config. An explicitly requested model resolves
// to its provider and must be usable; a stored selection falls back to the
// first usable config in provider order.
func (o *Orchestrator) resolve(ctx context.Context, requested string) (model.ProviderConfig, bool) {
	if o.configs == nil {
		return model.ProviderConfig{}, false
	}

	configs, err := o.configs.ProviderConfigs(ctx)
	if err != nil {
		o.logger.Warn("reading provider configs failed", "error", err)
		return model.ProviderConfig{}, false
	}

	modelID := strings.TrimSpace(requested)
	explicit := modelID != ""
	if !explicit {
		if selected, err := o.configs.SelectedModel(ctx); err != nil {
			o.logger.Warn("reading model selection failed", "error", err)
		} else {
			modelID = selected
		}
	}

	if modelID != "" {
		if cfg, ok := o.configForModel(configs, modelID); ok && cfg.Usable() {
			cfg.ModelID = modelID
			return cfg, true
		}
		if explicit {
			o.logger.Info("requested model has no usable provider config", "model", modelID)
			return model.ProviderConfig{}, false
		}
	}

	return configs.FirstUsable()
}

// configForModel finds the config of the provider declaring modelID
func (o *Orchestrator) configForModel(configs model.ProviderConfigs, modelID string) (model.ProviderConfig, bool) {
	if info, ok := o.catalog.Lookup(modelID); ok {
		cfg, found := configs[info.Provider]
		cfg.Provider = info.Provider
		return cfg, found
	}
	for _, id := range model.Providers {
		if cfg, ok := configs[id]; ok && cfg.ModelID == modelID {
			cfg.Provider = id
			return cfg, true
		}
	}
	return model.ProviderConfig{}, false
}
