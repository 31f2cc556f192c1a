// Package provider defines the text-generation interface the responder
// depends on. The Gemini implementation lives in the gemini subpackage.
package provider

import "context"

// Turn is one conversation line handed to the generator, oldest first.
type Turn struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// GenerationRequest carries the recent conversation the reply should
// address. The final turn is the message being replied to.
type GenerationRequest struct {
	Turns []Turn `json:"turns"`
}

// Usage is the estimated token consumption of one generation. Estimates
// are a character-count heuristic (ceil(len/4)), not tokenizer output.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// GenerationResult is a successful generation.
type GenerationResult struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Generator produces a reply for a conversation. Implementations must
// return a sentinel-wrapped error for every failure mode and never panic;
// the responder collapses any error into an aborted run.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
	ModelName() string
}
