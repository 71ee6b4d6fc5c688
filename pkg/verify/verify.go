// Package verify implements the POST /v1/verify structured claim-checking
// sub-protocol (spec.md §4.7): route a claim to an agent/intent pair by
// content, ask the model for a fixed JSON verdict shape, and tolerate a
// model that doesn't comply.
package verify

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/blackroad/gateway/pkg/dispatch"
	"github.com/blackroad/gateway/pkg/provider"
)

var sensitivePattern = regexp.MustCompile(`(?i)password|secret|key|token|vulnerability|exploit|breach|hack`)

// Route picks the agent/intent pair a claim is checked under.
func Route(claim string) (agent, intent string) {
	if sensitivePattern.MatchString(claim) {
		return "cipher", "audit"
	}
	return "prism", "analyze"
}

const instructionPrompt = `Evaluate the following claim and respond with ONLY a JSON object of the exact shape {"verdict":"true"|"false"|"unverified"|"conflicting","confidence":0..1,"reasoning":string,"flags":string[]}. Do not include any text outside the JSON object.`

var validVerdicts = map[string]bool{
	"true":        true,
	"false":       true,
	"unverified":  true,
	"conflicting": true,
}

// Verdict is the parsed result of a verify call.
type Verdict struct {
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Flags      []string `json:"flags"`
}

// Request is the POST /v1/verify body.
type Request struct {
	Claim               string   `json:"claim"`
	Sources             []string `json:"sources,omitempty"`
	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty"`
}

// Invoker dispatches a prompt to a provider with fallback, returning the
// raw model text and which provider ultimately served it.
type Invoker func(ctx context.Context, agent, intent string, args provider.Args) (dispatch.Result, error)

// Run routes claim, dispatches the fixed verification prompt, and parses
// the model's response into a Verdict. The agent actually used and the
// dispatch result are returned for journaling.
func Run(ctx context.Context, claim string, invoke Invoker) (verdict Verdict, agentUsed string, result dispatch.Result, err error) {
	agent, intent := Route(claim)

	prompt := instructionPrompt + "\n\nClaim: " + claim

	res, invokeErr := invoke(ctx, agent, intent, provider.Args{
		Input:  claim,
		System: prompt,
		Agent:  agent,
		Intent: intent,
	})
	if invokeErr != nil {
		return Verdict{}, agent, res, invokeErr
	}

	return parseVerdict(res.Output), agent, res, nil
}

func parseVerdict(raw string) Verdict {
	jsonSlice := extractBalancedObject(raw)
	if jsonSlice == "" {
		return Verdict{Verdict: "unverified", Confidence: 0.5, Reasoning: raw, Flags: []string{}}
	}

	var v Verdict
	if err := json.Unmarshal([]byte(jsonSlice), &v); err != nil {
		return Verdict{Verdict: "unverified", Confidence: 0.5, Reasoning: raw, Flags: []string{}}
	}

	v.Verdict = strings.ToLower(strings.TrimSpace(v.Verdict))
	if !validVerdicts[v.Verdict] {
		v.Verdict = "unverified"
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	if v.Flags == nil {
		v.Flags = []string{}
	}
	return v
}

// extractBalancedObject returns the first balanced {...} substring of s,
// or "" if none is found.
func extractBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
