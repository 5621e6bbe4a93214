package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ppiankov/bsdetector/internal/model"
	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter speaks the OpenAI chat completions format, shared by xAI,
// OpenAI and custom OpenAI-compatible endpoints
type OpenAIAdapter struct {
	id             model.ProviderID
	defaultBaseURL string
}

// Provider returns the provider name
func (a *OpenAIAdapter) Provider() model.ProviderID {
	return a.id
}

// BuildRequest creates a POST {baseUrl}/chat/completions request
func (a *OpenAIAdapter) BuildRequest(ctx context.Context, cfg model.ProviderConfig, prompt Prompt) (*http.Request, error) {
	base, err := baseURL(cfg, a.defaultBaseURL)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model: cfg.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		MaxTokens:   maxOutputTokens,
		Temperature: temperature,
	}

	req, err := newJSONRequest(ctx, http.MethodPost, base+"/chat/completions", chatReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}

// ParseResponse reads choices[0].message.content
func (a *OpenAIAdapter) ParseResponse(body []byte) (*model.AnalysisResult, error) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Provider: a.id, Reason: "malformed chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ParseError{Provider: a.id, Reason: "no choices in response"}
	}
	return decodeAnalysis(a.id, resp.Choices[0].Message.Content)
}

// Ping lists models through the go-openai client
func (a *OpenAIAdapter) Ping(ctx context.Context, httpClient *http.Client, cfg model.ProviderConfig) error {
	base, err := baseURL(cfg, a.defaultBaseURL)
	if err != nil {
		return err
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = base
	clientConfig.HTTPClient = httpClient

	_, err = openai.NewClientWithConfig(clientConfig).ListModels(ctx)
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: a.id, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: a.id, StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return redactURLError(err)
}
