package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ScriptedOracle is a deterministic in-memory Oracle for tests and examples.
// Responses are consumed in FIFO order; every received request is recorded
// for assertions. It is safe for concurrent use (the aggregator's map phase
// may invoke it from multiple goroutines).
type ScriptedOracle struct {
	mu     sync.Mutex
	script []scriptedStep
	calls  []Request
}

type scriptedStep struct {
	resp Response
	err  error
}

// NewScriptedOracle constructs an empty scripted oracle. An Invoke against an
// exhausted script fails, which makes missing expectations loud in tests.
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{}
}

// Push appends a raw response to the script.
func (s *ScriptedOracle) Push(resp Response) *ScriptedOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, scriptedStep{resp: resp})
	return s
}

// PushText appends a plain-text completion.
func (s *ScriptedOracle) PushText(text string) *ScriptedOracle {
	return s.Push(Response{Text: text, FinishReason: "stop"})
}

// PushJSON appends a structured response by marshaling v.
func (s *ScriptedOracle) PushJSON(v any) *ScriptedOracle {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("scripted oracle: marshal response: %v", err))
	}
	return s.Push(Response{Data: data, FinishReason: "stop"})
}

// PushToolCall appends an assistant turn requesting a single tool call.
func (s *ScriptedOracle) PushToolCall(callID, name, arguments string) *ScriptedOracle {
	return s.Push(Response{
		ToolCalls:    []ToolCall{{ID: callID, Name: name, Arguments: arguments}},
		FinishReason: "tool_calls",
	})
}

// PushError appends a failing step.
func (s *ScriptedOracle) PushError(err error) *ScriptedOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, scriptedStep{err: err})
	return s
}

// Invoke implements Oracle by popping the next scripted step.
func (s *ScriptedOracle) Invoke(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if len(s.script) == 0 {
		return Response{}, &ModelError{Provider: "scripted", Err: fmt.Errorf("script exhausted after %d calls", len(s.calls))}
	}
	step := s.script[0]
	s.script = s.script[1:]
	if step.err != nil {
		return Response{}, step.err
	}
	return step.resp, nil
}

// Info implements Oracle.
func (s *ScriptedOracle) Info() Info { return Info{Name: "scripted", Provider: "scripted"} }

// Calls returns a copy of all requests received so far.
func (s *ScriptedOracle) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Request, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// CallCount returns how many times Invoke was called.
func (s *ScriptedOracle) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Remaining returns how many scripted steps are still queued.
func (s *ScriptedOracle) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.script)
}
