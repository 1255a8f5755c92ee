// Package llm defines the inference boundary and a client for a local
// llama-server instance.
package llm

import "context"

// Provider is a loaded language model that turns a prompt into text.
type Provider interface {
	// Loaded reports whether the model behind the provider is ready to
	// serve. It must be cheap: callers consult it on every request.
	Loaded() bool

	// Generate runs one completion. It honors ctx cancellation and returns
	// an error for transport or server failures; an empty completion is not
	// an error at this layer.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request carries one completion call.
type Request struct {
	// ID correlates log lines across layers; callers usually fill it with a
	// fresh UUID.
	ID string

	Prompt        string
	MaxTokens     int
	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64
	Stop          []string
}

// Response is the model output for one Request.
type Response struct {
	Text            string
	TokensPredicted int
	TokensEvaluated int
}
