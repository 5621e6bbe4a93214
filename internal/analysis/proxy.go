package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/bsdetector/internal/llm"
	"github.com/ppiankov/bsdetector/internal/model"
)

const maxProxyResponse = 4 << 20

// ProxyRequest is the JSON body of POST /api/analyze
type ProxyRequest struct {
	Claim    string           `json:"claim"`
	Provider model.ProviderID `json:"provider"`
	ModelID  string           `json:"modelId"`
	APIKey   string           `json:"apiKey"`
	BaseURL  string           `json:"baseUrl,omitempty"`
	Persona  string           `json:"persona,omitempty"`
	Mode     model.Mode       `json:"mode,omitempty"`
}

// Config returns the provider config carried by the request
func (r ProxyRequest) Config() model.ProviderConfig {
	return model.ProviderConfig{
		Provider: r.Provider,
		ModelID:  r.ModelID,
		APIKey:   r.APIKey,
		BaseURL:  r.BaseURL,
		Enabled:  true,
		Persona:  r.Persona,
	}
}

// ProxyClient forwards analysis calls to a server-side analyze endpoint
type ProxyClient struct {
	httpClient *http.Client
	endpoint   string
	logger     *log.Logger
}

// NewProxyClient creates a client for the analyze endpoint at endpoint
func NewProxyClient(endpoint string, httpClient *http.Client, logger *log.Logger) *ProxyClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ProxyClient{
		httpClient: httpClient,
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		logger:     logger,
	}
}

// Analyze posts the request to the proxy and decodes the normalized result.
// Error bodies are turned back into the typed errors the proxy classified.
func (p *ProxyClient) Analyze(ctx context.Context, req llm.Request, mode model.Mode) (*model.AnalysisResult, error) {
	payload, err := json.Marshal(ProxyRequest{
		Claim:    req.Content,
		Provider: req.Config.Provider,
		ModelID:  req.Config.ModelID,
		APIKey:   req.Config.APIKey,
		BaseURL:  req.Config.BaseURL,
		Persona:  req.Persona,
		Mode:     mode,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal proxy request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	p.logger.Debug("proxy request", "endpoint", p.endpoint, "provider", req.Config.Provider, "model", req.Config.ModelID)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, &llm.TimeoutError{Provider: req.Config.Provider, Err: err}
		}
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyResponse))
	if err != nil {
		return nil, fmt.Errorf("read proxy response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var pe ProxyError
		if err := json.Unmarshal(body, &pe); err != nil || pe.Kind == "" {
			return nil, fmt.Errorf("proxy error (%d): %s", resp.StatusCode, llm.TruncateBody(bytes.TrimSpace(body)))
		}
		if pe.Provider == "" {
			pe.Provider = req.Config.Provider
		}
		return nil, pe.Err()
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &llm.ParseError{Provider: req.Config.Provider, Reason: "malformed proxy response", Err: err}
	}
	if err := llm.ValidateResult(&result); err != nil {
		return nil, err
	}
	if result.KeyPoints == nil {
		result.KeyPoints = []string{}
	}
	return &result, nil
}
