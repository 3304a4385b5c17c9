// Package groq provides a model.Model backed by Groq's OpenAI compatible
// chat completions endpoint.
package groq

import (
	"github.com/hupe1980/agentcrew/model/openai"
)

const (
	// DefaultBaseURL is Groq's OpenAI compatible API root.
	DefaultBaseURL = "https://api.groq.com/openai/v1/"
	// DefaultModel is the model id used when none is configured.
	DefaultModel = "llama-3.3-70b-versatile"
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv = "GROQ_API_KEY"
)

// Options configure the Groq model.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
}

// NewModel returns a Groq backed model. The API key falls back to GROQ_API_KEY.
// It is not validated here: a missing key fails on the first request.
func NewModel(optFns ...func(o *Options)) *openai.Model {
	opts := Options{
		Model:       DefaultModel,
		BaseURL:     DefaultBaseURL,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return openai.NewModel(func(o *openai.Options) {
		o.Model = opts.Model
		o.APIKey = opts.APIKey
		o.APIKeyEnv = APIKeyEnv
		o.BaseURL = opts.BaseURL
		o.Temperature = opts.Temperature
		o.MaxCompletionTokens = opts.MaxTokens
		o.Provider = "groq"
	})
}
