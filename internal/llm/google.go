package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ppiankov/bsdetector/internal/model"
)

// GoogleAdapter speaks the Gemini generateContent format
type GoogleAdapter struct{}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleRequest struct {
	SystemInstruction *googleContent         `json:"systemInstruction,omitempty"`
	Contents          []googleContent        `json:"contents"`
	GenerationConfig  googleGenerationConfig `json:"generationConfig"`
}

type googleGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content      googleContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

// Provider returns the provider name
func (a *GoogleAdapter) Provider() model.ProviderID {
	return model.ProviderGoogle
}

// BuildRequest creates a POST {baseUrl}/models/{modelId}:generateContent?key={apiKey} request
func (a *GoogleAdapter) BuildRequest(ctx context.Context, cfg model.ProviderConfig, prompt Prompt) (*http.Request, error) {
	base, err := baseURL(cfg, defaultGoogleBaseURL)
	if err != nil {
		return nil, err
	}

	apiReq := googleRequest{
		SystemInstruction: &googleContent{Parts: []googlePart{{Text: prompt.System}}},
		Contents: []googleContent{
			{Role: "user", Parts: []googlePart{{Text: prompt.User}}},
		},
		GenerationConfig: googleGenerationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  maxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, url.PathEscape(cfg.ModelID), url.QueryEscape(cfg.APIKey))
	return newJSONRequest(ctx, http.MethodPost, endpoint, apiReq)
}

// ParseResponse reads candidates[0].content.parts[0].text
func (a *GoogleAdapter) ParseResponse(body []byte) (*model.AnalysisResult, error) {
	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Provider: model.ProviderGoogle, Reason: "malformed generateContent response", Err: err}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &ParseError{Provider: model.ProviderGoogle, Reason: "no candidates in response"}
	}
	return decodeAnalysis(model.ProviderGoogle, resp.Candidates[0].Content.Parts[0].Text)
}

// Ping lists models with the configured key
func (a *GoogleAdapter) Ping(ctx context.Context, httpClient *http.Client, cfg model.ProviderConfig) error {
	base, err := baseURL(cfg, defaultGoogleBaseURL)
	if err != nil {
		return err
	}

	req, err := newJSONRequest(ctx, http.MethodGet, base+"/models?key="+url.QueryEscape(cfg.APIKey), nil)
	if err != nil {
		return err
	}
	return ping(httpClient, req, model.ProviderGoogle)
}
