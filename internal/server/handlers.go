package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/bsdetector/internal/analysis"
	"github.com/ppiankov/bsdetector/internal/content"
	"github.com/ppiankov/bsdetector/internal/llm"
	"github.com/ppiankov/bsdetector/internal/model"
)

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ModelsResponse is the body of GET /api/models
type ModelsResponse struct {
	Models []model.ModelInfo `json:"models"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleModels(c echo.Context) error {
	models := make([]model.ModelInfo, len(s.catalog))
	copy(models, s.catalog)
	return c.JSON(http.StatusOK, ModelsResponse{Models: models})
}

// handleAnalyze runs one provider call with the caller's credentials and
// returns the normalized result or a classified error body
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analysis.ProxyRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, &analysis.InputError{Reason: "malformed JSON body"})
	}

	call, err := s.buildCall(req)
	if err != nil {
		return s.fail(c, err)
	}

	result, err := s.analyzer.Analyze(c.Request().Context(), call)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// buildCall validates the request and turns it into a provider call
func (s *Server) buildCall(req analysis.ProxyRequest) (llm.Request, error) {
	if strings.TrimSpace(req.Claim) == "" {
		return llm.Request{}, &analysis.InputError{Reason: "claim is required"}
	}
	provider, err := model.ParseProvider(string(req.Provider))
	if err != nil {
		return llm.Request{}, &analysis.InputError{Reason: err.Error()}
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return llm.Request{}, &analysis.InputError{Reason: "apiKey is required"}
	}

	mode := req.Mode
	if mode == "" {
		mode = model.ModeVoter
	}
	if !mode.Valid() {
		return llm.Request{}, &analysis.InputError{Reason: "unknown mode " + string(req.Mode)}
	}

	text, err := s.normalizer.Normalize(req.Claim)
	if err != nil {
		if errors.Is(err, content.ErrEmpty) {
			return llm.Request{}, &analysis.InputError{Reason: "claim is required"}
		}
		return llm.Request{}, &analysis.InputError{Reason: err.Error()}
	}

	persona := strings.TrimSpace(req.Persona)
	if persona == "" {
		persona = llm.DefaultPersona(mode)
	}

	cfg := req.Config()
	cfg.Provider = provider
	return llm.Request{Content: text, Persona: persona, Config: cfg}, nil
}

func (s *Server) fail(c echo.Context, err error) error {
	pe := analysis.ProxyErrorFrom(err)
	status := analysis.HTTPStatus(pe.Kind)

	s.logger.Warn("analyze failed", "kind", pe.Kind, "provider", pe.Provider, "status", status, "error", err)
	return c.JSON(status, pe)
}
