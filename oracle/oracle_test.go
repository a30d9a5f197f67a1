package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "bare object", in: `{"a":1}`, want: `{"a":1}`, ok: true},
		{name: "prose around", in: `Here you go: {"a":1} hope that helps`, want: `{"a":1}`, ok: true},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{name: "no object", in: "sorry, I cannot", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestConformText(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"steps": map[string]any{"type": "array"}},
		"required":   []string{"steps"},
	}

	raw, err := ConformText("test", `{"steps":["a","b"]}`, schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"steps":["a","b"]}`, string(raw))

	_, err = ConformText("test", `{"other":1}`, schema)
	var me *ModelError
	require.ErrorAs(t, err, &me)

	_, err = ConformText("test", "no json here", schema)
	require.ErrorAs(t, err, &me)
}

func TestDecode(t *testing.T) {
	type plan struct {
		Steps []string `json:"steps"`
	}

	var p plan
	require.NoError(t, Decode(Response{Data: []byte(`{"steps":["x"]}`)}, &p))
	assert.Equal(t, []string{"x"}, p.Steps)

	p = plan{}
	require.NoError(t, Decode(Response{Text: `plan: {"steps":["y"]}`}, &p))
	assert.Equal(t, []string{"y"}, p.Steps)

	var me *ModelError
	require.ErrorAs(t, Decode(Response{Text: "nope"}, &p), &me)
}

func TestScriptedOracle(t *testing.T) {
	s := NewScriptedOracle().
		PushJSON(map[string]any{"steps": []string{"a"}}).
		PushToolCall("fc1", "tracker_search", `{"query":"q"}`).
		PushText("done").
		PushError(errors.New("boom"))

	ctx := context.Background()

	resp, err := s.Invoke(ctx, Request{Instructions: "plan"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Data)

	resp, err = s.Invoke(ctx, Request{})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "tracker_search", resp.ToolCalls[0].Name)

	resp, err = s.Invoke(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text)

	_, err = s.Invoke(ctx, Request{})
	require.Error(t, err)

	// exhausted script fails loudly
	_, err = s.Invoke(ctx, Request{})
	var me *ModelError
	require.ErrorAs(t, err, &me)

	assert.Equal(t, 5, s.CallCount())
	assert.Equal(t, "plan", s.Calls()[0].Instructions)
}
