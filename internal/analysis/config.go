// Package analysis provides the LLM-backed collaborators: clustering raw
// issues into topics, analyzing issues into brief items, and producing
// deep reports. Prompt quality is not this package's concern; it owns the
// client plumbing, output hygiene, and schema validation.
package analysis

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: clustering, classification
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: per-issue analysis
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning: deep reports, synthesis
	TierAdvanced ModelTier = "advanced"
)

// Config holds the model configuration for the application
type Config struct {
	Models map[ModelTier]string
}

// DefaultConfig returns the default Gemini model mapping
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}
