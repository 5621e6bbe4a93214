package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/bsdetector/internal/model"
)

// Adapter translates between the normalized analysis call and one provider's wire format
type Adapter interface {
	// Provider returns the provider this adapter speaks to
	Provider() model.ProviderID

	// BuildRequest creates the HTTP request for an analysis prompt
	BuildRequest(ctx context.Context, cfg model.ProviderConfig, prompt Prompt) (*http.Request, error)

	// ParseResponse decodes a 2xx response body into a validated analysis.
	// ID, content, timestamps and model name are stamped by the caller.
	ParseResponse(body []byte) (*model.AnalysisResult, error)
}

// Pinger is implemented by adapters that can verify credentials cheaply
type Pinger interface {
	Ping(ctx context.Context, httpClient *http.Client, cfg model.ProviderConfig) error
}

const (
	defaultXAIBaseURL       = "https://api.x.ai/v1"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultGoogleBaseURL    = "https://generativelanguage.googleapis.com/v1beta"

	anthropicVersion = "2023-06-01"
	temperature      = 0.3
	maxOutputTokens  = 1500
)

var adapters = map[model.ProviderID]Adapter{
	model.ProviderXAI:       &OpenAIAdapter{id: model.ProviderXAI, defaultBaseURL: defaultXAIBaseURL},
	model.ProviderOpenAI:    &OpenAIAdapter{id: model.ProviderOpenAI, defaultBaseURL: defaultOpenAIBaseURL},
	model.ProviderCustom:    &OpenAIAdapter{id: model.ProviderCustom},
	model.ProviderAnthropic: &AnthropicAdapter{},
	model.ProviderGoogle:    &GoogleAdapter{},
}

// AdapterFor returns the adapter registered for a provider
func AdapterFor(provider model.ProviderID) (Adapter, error) {
	a, ok := adapters[provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
	return a, nil
}

// withDefaults fills in the model id from the catalog when the config leaves it blank
func withDefaults(cfg model.ProviderConfig) (model.ProviderConfig, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.ModelID == "" {
		cfg.ModelID = model.DefaultCatalog().DefaultModel(cfg.Provider)
	}
	if cfg.ModelID == "" {
		return cfg, &ConfigError{Provider: cfg.Provider, Reason: "model id is required"}
	}
	return cfg, nil
}

func baseURL(cfg model.ProviderConfig, fallback string) (string, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = fallback
	}
	if base == "" {
		return "", &ConfigError{Provider: cfg.Provider, Reason: "base URL is required"}
	}
	return strings.TrimSuffix(base, "/"), nil
}

func newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ping issues a lightweight GET and classifies non-2xx responses
func ping(httpClient *http.Client, req *http.Request, provider model.ProviderID) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, redactURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
		return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Body: TruncateBody(body)}
	}
	return nil
}

// redactURLError strips the query string from transport errors; the
// Google API key travels as a query parameter
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil {
			u.RawQuery = ""
			urlErr.URL = u.String()
		} else {
			urlErr.URL = "(redacted)"
		}
	}
	return err
}
