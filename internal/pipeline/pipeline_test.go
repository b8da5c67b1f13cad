package pipeline_test

import (
	"context"
	"fmt"

	"github.com/avvvet/beckn-intent/internal/llm"
)

// fakeProvider replays canned completions in order and records every prompt
// it receives. It fails once the scripted responses run out so tests notice
// unexpected extra calls.
type fakeProvider struct {
	responses []string
	prompts   [][]llm.Message
	calls     int
	err       error
}

func (f *fakeProvider) Complete(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
	f.prompts = append(f.prompts, messages)
	if f.err != nil {
		return "", f.err
	}
	if f.calls >= len(f.responses) {
		return "", fmt.Errorf("unexpected completion call %d", f.calls+1)
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}
