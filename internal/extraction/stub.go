package extraction

import (
	"context"
	"sync"
)

// StaticExtractor returns canned results and counts invocations. Pipeline
// tests use it to prove extraction is charged at most once per digest.
type StaticExtractor struct {
	mu     sync.Mutex
	calls  int
	Result Result
	Err    error
}

func (s *StaticExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.Result
	if out.Fields == nil {
		out.Fields = map[string]FieldValue{}
	}
	// Copy so callers cannot mutate the canned map between invocations.
	fields := make(map[string]FieldValue, len(out.Fields))
	for k, v := range out.Fields {
		fields[k] = v
	}
	out.Fields = fields
	return &out, nil
}

func (s *StaticExtractor) Close() error { return nil }

func (s *StaticExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
