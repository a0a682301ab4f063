package model

import (
	"context"
	"sync"
)

// MockCompletion is a scripted Completion for tests. Responses are keyed by
// the last user message of the request; unscripted requests get the fallback
// response.
type MockCompletion struct {
	mu       sync.Mutex
	script   map[string]*Response
	fallback *Response
	err      error
	calls    int
}

var _ Completion = (*MockCompletion)(nil)

// NewMockCompletion creates a mock whose fallback echoes a canned line.
func NewMockCompletion() *MockCompletion {
	return &MockCompletion{
		script:   map[string]*Response{},
		fallback: &Response{Text: "I'm not sure how to help with that."},
	}
}

// AddScript registers the response returned when the last user message
// equals utterance.
func (m *MockCompletion) AddScript(utterance string, resp *Response) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script[utterance] = resp

	return m
}

// SetFallback replaces the response for unscripted requests.
func (m *MockCompletion) SetFallback(resp *Response) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fallback = resp

	return m
}

// Fail makes every subsequent Complete call return err.
func (m *MockCompletion) Fail(err error) *MockCompletion {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err

	return m
}

// Calls returns how many times Complete has been invoked.
func (m *MockCompletion) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

// Complete implements Completion.
func (m *MockCompletion) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if m.err != nil {
		return nil, m.err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == RoleUser {
			if resp, ok := m.script[req.History[i].Text]; ok {
				return resp, nil
			}

			break
		}
	}

	return m.fallback, nil
}
