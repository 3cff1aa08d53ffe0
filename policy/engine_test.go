package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
		allowed bool
		reason  string
	}{
		{name: "short", content: "Hi", allowed: true},
		{name: "empty", content: "", allowed: false, reason: "content must not be empty"},
		// Whitespace counts; only the empty string is rejected.
		{name: "whitespace", content: " \n\t", allowed: true},
		{name: "at limit", content: strings.Repeat("a", 5000), allowed: true},
		{name: "over limit", content: strings.Repeat("a", 5001), allowed: false, reason: "content exceeds 5000 characters"},
		// Multi-byte characters count once each.
		{name: "multibyte at limit", content: strings.Repeat("é", 5000), allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := engine.Evaluate(ctx, NewInput(tt.content, false, 5000))
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed())
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestCustomPolicyStringDecision(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package message_policy

default decision = "allow"

decision = "reject" {
	input.new_session
}

decision = "reject" {
	input.blank
}
`)
	require.NoError(t, err)

	d, err := engine.Evaluate(ctx, NewInput("hello", true, 5000))
	require.NoError(t, err)
	assert.False(t, d.Allowed())

	d, err = engine.Evaluate(ctx, NewInput("hello", false, 5000))
	require.NoError(t, err)
	assert.True(t, d.Allowed())

	d, err = engine.Evaluate(ctx, NewInput("  ", false, 5000))
	require.NoError(t, err)
	assert.False(t, d.Allowed())
}

func TestNewEngineInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package message_policy\n decision = {")
	assert.Error(t, err)
}

func TestLoadEngine(t *testing.T) {
	ctx := context.Background()

	engine, err := LoadEngine(ctx, "")
	require.NoError(t, err)
	d, err := engine.Evaluate(ctx, NewInput(" ", false, 5000))
	require.NoError(t, err)
	assert.True(t, d.Allowed())

	path := filepath.Join(t.TempDir(), "admission.rego")
	require.NoError(t, os.WriteFile(path, []byte(`
package message_policy

default decision = {"decision": "allow"}

decision = {"decision": "reject", "reason": "content must not be blank"} {
	input.blank
}
`), 0o600))

	engine, err = LoadEngine(ctx, path)
	require.NoError(t, err)
	d, err = engine.Evaluate(ctx, NewInput(" ", false, 5000))
	require.NoError(t, err)
	assert.False(t, d.Allowed())
	assert.Equal(t, "content must not be blank", d.Reason)

	_, err = LoadEngine(ctx, filepath.Join(t.TempDir(), "missing.rego"))
	assert.ErrorContains(t, err, "failed to read policy file")
}
