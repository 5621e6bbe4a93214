package llm

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ppiankov/bsdetector/internal/model"
)

// AnthropicAdapter speaks the Anthropic messages format
type AnthropicAdapter struct{}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}

// Provider returns the provider name
func (a *AnthropicAdapter) Provider() model.ProviderID {
	return model.ProviderAnthropic
}

// BuildRequest creates a POST {baseUrl}/messages request
func (a *AnthropicAdapter) BuildRequest(ctx context.Context, cfg model.ProviderConfig, prompt Prompt) (*http.Request, error) {
	base, err := baseURL(cfg, defaultAnthropicBaseURL)
	if err != nil {
		return nil, err
	}

	apiReq := anthropicRequest{
		Model:     cfg.ModelID,
		MaxTokens: maxOutputTokens,
		System:    prompt.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt.User},
		},
		Temperature: temperature,
	}

	req, err := newJSONRequest(ctx, http.MethodPost, base+"/messages", apiReq)
	if err != nil {
		return nil, err
	}
	setAnthropicHeaders(req, cfg.APIKey)
	return req, nil
}

// ParseResponse reads content[0].text
func (a *AnthropicAdapter) ParseResponse(body []byte) (*model.AnalysisResult, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Provider: model.ProviderAnthropic, Reason: "malformed messages response", Err: err}
	}
	if len(resp.Content) == 0 {
		return nil, &ParseError{Provider: model.ProviderAnthropic, Reason: "no content in response"}
	}
	return decodeAnalysis(model.ProviderAnthropic, resp.Content[0].Text)
}

// Ping lists models with the configured key
func (a *AnthropicAdapter) Ping(ctx context.Context, httpClient *http.Client, cfg model.ProviderConfig) error {
	base, err := baseURL(cfg, defaultAnthropicBaseURL)
	if err != nil {
		return err
	}

	req, err := newJSONRequest(ctx, http.MethodGet, base+"/models", nil)
	if err != nil {
		return err
	}
	setAnthropicHeaders(req, cfg.APIKey)
	return ping(httpClient, req, model.ProviderAnthropic)
}

func setAnthropicHeaders(req *http.Request, apiKey string) {
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}
