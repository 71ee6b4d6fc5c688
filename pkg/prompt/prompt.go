// Package prompt composes the layered system prompt sent to a provider:
// a base default, an agent-specific fragment, an intent-specific fragment,
// and (if present) a serialized view of the request's context object.
package prompt

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is the prompt fragment file described in spec.md §3.
type Document struct {
	Default string            `json:"default"`
	Agents  map[string]string `json:"agents"`
	Intents map[string]string `json:"intents"`
}

// Load reads and parses the prompt fragment file at path. A missing file
// is not an error — it yields an empty Document, matching the "returns the
// empty string if prompts is null" composition rule.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("prompt: read %s: %w", path, err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("prompt: parse %s: %w", path, err)
	}
	return doc, nil
}

// Compose concatenates, separated by blank lines, in order: the default
// prompt, the agent fragment, the intent fragment, and — if context is a
// non-empty object — a "Context JSON:\n<json>" block. Missing fragments
// are skipped entirely, never leaving stray separators. A nil Document
// composes to the empty string.
func Compose(doc *Document, agent, intent string, context map[string]any) string {
	if doc == nil {
		return ""
	}

	var parts []string
	if doc.Default != "" {
		parts = append(parts, doc.Default)
	}
	if frag, ok := doc.Agents[agent]; ok && frag != "" {
		parts = append(parts, frag)
	}
	if frag, ok := doc.Intents[intent]; ok && frag != "" {
		parts = append(parts, frag)
	}
	if len(context) > 0 {
		if encoded, err := json.Marshal(context); err == nil {
			parts = append(parts, "Context JSON:\n"+string(encoded))
		}
	}

	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}
