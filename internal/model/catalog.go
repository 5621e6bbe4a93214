package model

// ModelInfo describes a known model
type ModelInfo struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Provider ProviderID `json:"provider"`
}

// Catalog is an ordered list of known models
type Catalog []ModelInfo

// DefaultCatalog returns the built-in model list
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: "grok-3", Name: "Grok 3", Provider: ProviderXAI},
		{ID: "grok-3-mini", Name: "Grok 3 Mini", Provider: ProviderXAI},
		{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: ProviderOpenAI},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Provider: ProviderAnthropic},
		{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Provider: ProviderAnthropic},
		{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Provider: ProviderGoogle},
		{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Provider: ProviderGoogle},
	}
}

// Lookup finds a model by id
func (c Catalog) Lookup(id string) (ModelInfo, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// DisplayName returns the human-readable name of a model, or the raw id if unknown
func (c Catalog) DisplayName(id string) string {
	if m, ok := c.Lookup(id); ok {
		return m.Name
	}
	return id
}

// DefaultModel returns the first catalog model for a provider
func (c Catalog) DefaultModel(provider ProviderID) string {
	for _, m := range c {
		if m.Provider == provider {
			return m.ID
		}
	}
	return ""
}
