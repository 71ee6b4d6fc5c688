package provider

// DefaultRegistry wires the gateway's standard provider set. Model names
// are deliberately empty so each adapter falls back to its own sane
// default — operators override per-provider defaults via the adapter
// constructors directly if they embed this package elsewhere.
func DefaultRegistry() *Registry {
	reg := NewRegistry()

	reg.Register("anthropic", NewAnthropicAdapter(""))
	reg.Alias("claude", "anthropic")

	reg.Register("openai", NewOpenAIAdapter(""))
	reg.Register("ollama", NewOllamaAdapter("", ""))
	reg.Register("gemini", NewGeminiAdapter(""))

	return reg
}
