package core

import "context"

// Options controls model behavior; fields are optional per provider.
type Options struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
	SystemPrompt    string
	// ExpectJSON asks the provider to constrain output to a JSON document
	// where the API supports it (Gemini responseMimeType, OpenAI json mode).
	ExpectJSON bool
}

// Client is a provider-agnostic interface for the LLM operations we need.
type Client interface {
	// Generate sends a single-turn prompt and returns the raw model text.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
