package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ppiankov/bsdetector/internal/model"
)

// maxResponseBytes bounds how much of a provider response is read
const maxResponseBytes = 4 << 20

// Request is one direct analysis call
type Request struct {
	Content string
	Persona string
	Config  model.ProviderConfig
}

// Client executes analysis calls against providers through their adapters
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *log.Logger
	now        func() time.Time
}

// NewClient creates a client. A zero timeout leaves deadlines to the caller's context.
func NewClient(httpClient *http.Client, timeout time.Duration, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze sends content to the configured provider and returns the normalized result.
// It makes a single attempt; errors are ProviderError, ParseError, SchemaError,
// TimeoutError or ConfigError, or a wrapped transport error.
func (c *Client) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	adapter, err := AdapterFor(req.Config.Provider)
	if err != nil {
		return nil, err
	}
	cfg, err := withDefaults(req.Config)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := adapter.BuildRequest(ctx, cfg, BuildPrompt(req.Content, req.Persona))
	if err != nil {
		return nil, err
	}

	started := c.now()
	c.logger.Debug("provider request", "provider", cfg.Provider, "model", cfg.ModelID)

	body, err := c.do(ctx, httpReq, cfg.Provider)
	if err != nil {
		c.logger.Warn("provider request failed", "provider", cfg.Provider, "model", cfg.ModelID, "error", err)
		return nil, err
	}

	result, err := adapter.ParseResponse(body)
	if err != nil {
		c.logger.Warn("provider response rejected", "provider", cfg.Provider, "model", cfg.ModelID, "error", err)
		return nil, err
	}

	result.ID = uuid.NewString()
	result.Content = req.Content
	result.CreatedAt = c.now().UTC()
	result.ModelUsed = cfg.ModelID

	c.logger.Info("provider analysis complete",
		"provider", cfg.Provider,
		"model", cfg.ModelID,
		"verdict", result.Verdict,
		"confidence", result.Confidence,
		"duration", c.now().Sub(started).Round(time.Millisecond))

	return result, nil
}

// Check verifies that a config reaches its provider with valid credentials
func (c *Client) Check(ctx context.Context, cfg model.ProviderConfig) error {
	adapter, err := AdapterFor(cfg.Provider)
	if err != nil {
		return err
	}
	pinger, ok := adapter.(Pinger)
	if !ok {
		return fmt.Errorf("%s provider does not support connection checks", cfg.Provider)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := pinger.Ping(ctx, c.httpClient, cfg); err != nil {
		return c.classifyTransport(ctx, cfg.Provider, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, httpReq *http.Request, provider model.ProviderID) ([]byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransport(ctx, provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classifyTransport(ctx, provider, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Body: TruncateBody(body)}
	}
	return body, nil
}

// classifyTransport turns deadline expiry into a TimeoutError and redacts URLs
func (c *Client) classifyTransport(ctx context.Context, provider model.ProviderID, err error) error {
	var providerErr *ProviderError
	var configErr *ConfigError
	if errors.As(err, &providerErr) || errors.As(err, &configErr) {
		return err
	}
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Provider: provider, After: c.timeout, Err: redactURLError(err)}
	}
	return fmt.Errorf("%s request failed: %w", provider, redactURLError(err))
}
