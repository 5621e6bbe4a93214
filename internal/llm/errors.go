package llm

import (
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/bsdetector/internal/model"
)

// maxErrorBody bounds the provider body text carried by a ProviderError
const maxErrorBody = 512

// ErrNoUsableProvider means no provider config is enabled with an API key.
// Callers fall back to a mock result instead of surfacing it.
var ErrNoUsableProvider = errors.New("no usable provider configured")

// ConfigError is a provider config that cannot be turned into a request
type ConfigError struct {
	Provider model.ProviderID
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider misconfigured: %s", e.Provider, e.Reason)
}

// ProviderError is a non-2xx HTTP response from a provider
type ProviderError struct {
	Provider   model.ProviderID
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Body)
}

// ParseError means the response carried no extractable JSON
type ParseError struct {
	Provider model.ProviderID
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response format from %s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid response format from %s: %s", e.Provider, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError means the provider answered with JSON that is not a valid analysis
type SchemaError struct {
	Provider model.ProviderID
	Field    string
	Reason   string
}

func (e *SchemaError) Error() string {
	source := string(e.Provider)
	if source == "" {
		source = "analysis"
	}
	return fmt.Sprintf("%s returned an invalid analysis: %s %s", source, e.Field, e.Reason)
}

// TimeoutError means the call was aborted by its deadline
type TimeoutError struct {
	Provider model.ProviderID
	After    time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("%s request timed out after %s", e.Provider, e.After)
	}
	return fmt.Sprintf("%s request timed out", e.Provider)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// TruncateBody shortens raw provider or proxy output for error messages
func TruncateBody(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	return string(body[:maxErrorBody]) + "...(truncated)"
}
