// Package policy evaluates the admission policy for inbound chat messages.
package policy

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/open-policy-agent/opa/rego"
)

const (
	DecisionAllow  = "allow"
	DecisionReject = "reject"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Allowed reports whether the message may enter the conversation.
func (d Decision) Allowed() bool {
	return d.Decision == DecisionAllow
}

// Input is the document the policy is evaluated against.
type Input struct {
	ContentLength int  `json:"content_length"` // in characters
	Blank         bool `json:"blank"`
	NewSession    bool `json:"new_session"`
	MaxLength     int  `json:"max_length"`
}

// NewInput builds the policy input for a message.
func NewInput(content string, newSession bool, maxLength int) Input {
	return Input{
		ContentLength: utf8.RuneCountInString(content),
		Blank:         strings.TrimSpace(content) == "",
		NewSession:    newSession,
		MaxLength:     maxLength,
	}
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.message_policy.decision"),
		rego.Module("message_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// LoadEngine creates an engine from the rego module at path, or from
// DefaultPolicy when path is empty.
func LoadEngine(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks the admission policy for input.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// The policy defines a default, so an empty result set means it was
	// replaced by one that does not.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Decision: DecisionAllow, Reason: "default"}, nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Decision: val}, nil
	case map[string]interface{}:
		d := Decision{}
		d.Decision, _ = val["decision"].(string)
		d.Reason, _ = val["reason"].(string)
		if d.Decision == "" {
			return Decision{}, fmt.Errorf("policy returned object without decision")
		}
		return d, nil
	}

	return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package message_policy

default decision = {"decision": "allow"}

decision = {"decision": "reject", "reason": "content must not be empty"} {
	input.content_length == 0
}

decision = {"decision": "reject", "reason": sprintf("content exceeds %d characters", [input.max_length])} {
	input.content_length > input.max_length
}
`
