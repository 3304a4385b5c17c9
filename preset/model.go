package preset

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentcrew/config"
	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/model"
	anthropicmodel "github.com/hupe1980/agentcrew/model/anthropic"
	"github.com/hupe1980/agentcrew/model/groq"
	"github.com/hupe1980/agentcrew/model/openai"
)

// NewModel creates the language model selected by cfg. Credentials are not
// checked here; a missing API key fails on the first request.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderGroq, "":
		return groq.NewModel(func(o *groq.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.BaseURL != "" {
				o.BaseURL = cfg.BaseURL
			}
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" && cfg.Name != groq.DefaultModel {
				o.Model = cfg.Name
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" && cfg.Name != groq.DefaultModel {
				o.Model = anthropic.Model(cfg.Name)
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	case config.ProviderMock:
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		return model.NewMockModel(name, config.ProviderMock), nil
	default:
		return nil, core.ConfigError("model.provider", "unknown provider %q", cfg.Provider)
	}
}
