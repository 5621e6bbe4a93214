package model

import (
	"fmt"
	"strings"
)

// ProviderID names an LLM provider family
type ProviderID string

const (
	ProviderXAI       ProviderID = "xai"
	ProviderOpenAI    ProviderID = "openai"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderGoogle    ProviderID = "google"
	ProviderCustom    ProviderID = "custom"
)

// Providers is the stable iteration order used when picking an active config
var Providers = []ProviderID{
	ProviderXAI,
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderCustom,
}

// ParseProvider converts a user-supplied name into a ProviderID
func ParseProvider(name string) (ProviderID, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "xai", "grok":
		return ProviderXAI, nil
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "google", "gemini":
		return ProviderGoogle, nil
	case "custom":
		return ProviderCustom, nil
	default:
		return "", fmt.Errorf("unknown provider: %s (supported: xai, openai, anthropic, google, custom)", name)
	}
}

// ProviderConfig holds the settings for one provider
type ProviderConfig struct {
	Provider ProviderID `json:"provider" yaml:"provider" mapstructure:"provider"`
	ModelID  string     `json:"modelId" yaml:"model_id" mapstructure:"model_id"`
	APIKey   string     `json:"apiKey" yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string     `json:"baseUrl,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	Enabled  bool       `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Persona  string     `json:"persona,omitempty" yaml:"persona,omitempty" mapstructure:"persona"`
}

// Usable reports whether the config can be used for a real call:
// enabled and carrying a non-blank API key
func (c ProviderConfig) Usable() bool {
	return c.Enabled && strings.TrimSpace(c.APIKey) != ""
}

// Redacted returns a copy safe for display and logging
func (c ProviderConfig) Redacted() ProviderConfig {
	c.APIKey = MaskKey(c.APIKey)
	return c
}

// String never includes the API key
func (c ProviderConfig) String() string {
	return fmt.Sprintf("%s/%s (enabled=%t, key=%s)", c.Provider, c.ModelID, c.Enabled, MaskKey(c.APIKey))
}

// MaskKey hides all but the last four characters of a secret
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// ProviderConfigs maps each provider to its settings
type ProviderConfigs map[ProviderID]ProviderConfig

// FirstUsable returns the first usable config in provider order
func (cs ProviderConfigs) FirstUsable() (ProviderConfig, bool) {
	for _, id := range Providers {
		if cfg, ok := cs[id]; ok && cfg.Usable() {
			cfg.Provider = id
			return cfg, true
		}
	}
	return ProviderConfig{}, false
}

// Merge returns a new map where entries of other replace entries of cs
func (cs ProviderConfigs) Merge(other ProviderConfigs) ProviderConfigs {
	merged := make(ProviderConfigs, len(cs)+len(other))
	for id, cfg := range cs {
		merged[id] = cfg
	}
	for id, cfg := range other {
		merged[id] = cfg
	}
	return merged
}
