package analysis

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ppiankov/bsdetector/internal/llm"
	"github.com/ppiankov/bsdetector/internal/model"
)

// Error kinds carried by the proxy error body
const (
	KindInput    = "input"
	KindConfig   = "config"
	KindProvider = "provider"
	KindParse    = "parse"
	KindSchema   = "schema"
	KindTimeout  = "timeout"
	KindLimited  = "rate_limited"
	KindInternal = "internal"
)

// InputError is a request that cannot be analyzed as given
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// ProxyError is the JSON body of a failed proxy call.
// Status is the HTTP status of the response, except for provider errors
// where it is the upstream provider's status.
type ProxyError struct {
	Message  string           `json:"error"`
	Kind     string           `json:"kind"`
	Status   int              `json:"status"`
	Provider model.ProviderID `json:"provider,omitempty"`
	Body     string           `json:"body,omitempty"`
	Field    string           `json:"field,omitempty"`
}

// HTTPStatus maps an error kind to the proxy response status
func HTTPStatus(kind string) int {
	switch kind {
	case KindInput, KindConfig:
		return http.StatusBadRequest
	case KindProvider, KindParse, KindSchema:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ProxyErrorFrom classifies err into its wire representation
func ProxyErrorFrom(err error) ProxyError {
	var (
		inputErr    *InputError
		configErr   *llm.ConfigError
		providerErr *llm.ProviderError
		parseErr    *llm.ParseError
		schemaErr   *llm.SchemaError
		timeoutErr  *llm.TimeoutError
	)

	pe := ProxyError{Message: err.Error(), Kind: KindInternal}
	switch {
	case errors.As(err, &inputErr):
		pe.Kind = KindInput
		pe.Body = inputErr.Reason
	case errors.As(err, &configErr):
		pe.Kind = KindConfig
		pe.Provider = configErr.Provider
		pe.Body = configErr.Reason
	case errors.As(err, &providerErr):
		pe.Kind = KindProvider
		pe.Provider = providerErr.Provider
		pe.Body = providerErr.Body
		pe.Status = providerErr.StatusCode
	case errors.As(err, &parseErr):
		pe.Kind = KindParse
		pe.Provider = parseErr.Provider
		pe.Body = parseErr.Reason
	case errors.As(err, &schemaErr):
		pe.Kind = KindSchema
		pe.Provider = schemaErr.Provider
		pe.Field = schemaErr.Field
		pe.Body = schemaErr.Reason
	case errors.As(err, &timeoutErr):
		pe.Kind = KindTimeout
		pe.Provider = timeoutErr.Provider
	}

	if pe.Status == 0 {
		pe.Status = HTTPStatus(pe.Kind)
	}
	return pe
}

// Err rebuilds the typed error described by a proxy error body
func (pe ProxyError) Err() error {
	switch pe.Kind {
	case KindInput:
		return &InputError{Reason: pe.Body}
	case KindConfig:
		return &llm.ConfigError{Provider: pe.Provider, Reason: pe.Body}
	case KindProvider:
		return &llm.ProviderError{Provider: pe.Provider, StatusCode: pe.Status, Body: pe.Body}
	case KindParse:
		return &llm.ParseError{Provider: pe.Provider, Reason: pe.Body}
	case KindSchema:
		return &llm.SchemaError{Provider: pe.Provider, Field: pe.Field, Reason: pe.Body}
	case KindTimeout:
		return &llm.TimeoutError{Provider: pe.Provider}
	default:
		return fmt.Errorf("proxy error (%d): %s", pe.Status, pe.Message)
	}
}
