package models

// InferenceProvider describes one OpenAI-compatible inference backend
// the intent classifier can call. Loaded from providers.json and
// hot-reloaded on file change.
type InferenceProvider struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	// TimeoutSeconds bounds one classification request. Zero means the
	// classifier default.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// ProvidersConfig is the providers.json document.
type ProvidersConfig struct {
	Providers []InferenceProvider `json:"providers"`
	// Default names the provider used for classification; empty picks
	// the first entry.
	Default string `json:"default,omitempty"`
}

// DefaultProvider resolves the configured default provider, or nil
// when no usable provider exists.
func (c *ProvidersConfig) DefaultProvider() *InferenceProvider {
	if c == nil || len(c.Providers) == 0 {
		return nil
	}
	if c.Default != "" {
		for i := range c.Providers {
			if c.Providers[i].Name == c.Default {
				return &c.Providers[i]
			}
		}
	}
	return &c.Providers[0]
}
