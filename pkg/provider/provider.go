// Package provider implements the gateway's uniform provider adapter
// contract: every upstream LLM backend, however it talks on the wire,
// presents the same Invoke call to the dispatcher.
package provider

import "context"

// Args carries everything an adapter needs to produce a completion.
type Args struct {
	Input     string
	System    string
	Context   map[string]any
	RequestID string
	Agent     string
	Intent    string
}

// Adapter is the uniform capability every provider exposes.
type Adapter interface {
	Invoke(ctx context.Context, args Args) (string, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, args Args) (string, error)

func (f AdapterFunc) Invoke(ctx context.Context, args Args) (string, error) {
	return f(ctx, args)
}
