package estimator

import (
	"fmt"
	"strings"
)

const (
	grokBaseURL   = "https://api.x.ai/v1"
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
)

// New builds a single estimator from its configuration. Grok and Gemini are
// served through their OpenAI-compatible chat endpoints.
func New(cfg Config) (Estimator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAI(cfg)
	case "anthropic", "claude":
		return NewAnthropic(cfg)
	case "grok", "xai":
		if cfg.BaseURL == "" {
			cfg.BaseURL = grokBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = "grok-3-mini"
		}
		return NewOpenAI(cfg)
	case "gemini":
		if cfg.BaseURL == "" {
			cfg.BaseURL = geminiBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = "gemini-2.0-flash"
		}
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("estimator: unknown provider %q (supported: openai, anthropic, grok, gemini)", cfg.Provider)
	}
}

// NewAll builds every configured estimator, failing on the first bad config.
func NewAll(cfgs []Config) ([]Estimator, error) {
	out := make([]Estimator, 0, len(cfgs))
	for _, cfg := range cfgs {
		e, err := New(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
