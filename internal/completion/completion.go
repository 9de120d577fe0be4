// Package completion wraps chat-completion providers behind a single
// interface. A request carries the composed system prompt and the message
// list; the provider returns the assistant reply text.
package completion

import "context"

// Message is one chat message sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	System   string
	Messages []Message
}

// Completer generates an assistant reply for a composed request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
