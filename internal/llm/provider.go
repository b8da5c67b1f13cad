package llm

import "context"

// Message is one prompt message handed to the model.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Options controls a single completion call.
type Options struct {
	JSONMode    bool
	Temperature float64
	MaxTokens   int
}

// Provider is the language-model capability consumed by the pipeline.
// Implementations must bound every call with a timeout; callers treat any
// error or non-conforming output as a stage failure, never a crash.
type Provider interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// System, User and Assistant are shorthand constructors for prompt messages.
func System(content string) Message    { return Message{Role: "system", Content: content} }
func User(content string) Message      { return Message{Role: "user", Content: content} }
func Assistant(content string) Message { return Message{Role: "assistant", Content: content} }
