package sonic

import "context"

// ToolInput is the tool request as the model sent it. Content is the raw
// argument payload, a JSON document serialized as a string.
type ToolInput struct {
	ToolUseID string
	Content   string
}

// ToolDispatcher resolves and runs tool requests surfaced by the stream.
// Dispatch returns an error only for failures the model should hear
// about as an error event (unknown tool, canceled context); tool-level
// domain failures are expected to come back as a result value instead.
// Specs lists the tools advertised in promptStart.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, input ToolInput) (any, error)
	Specs() []ToolSpec
}

// NoTools is a ToolDispatcher for sessions that expose no tools.
type NoTools struct{}

func (NoTools) Dispatch(ctx context.Context, name string, input ToolInput) (any, error) {
	return nil, &UnsupportedToolError{Name: name}
}

func (NoTools) Specs() []ToolSpec { return nil }

// UnsupportedToolError reports a tool request with no registered handler.
type UnsupportedToolError struct {
	Name string
}

func (e *UnsupportedToolError) Error() string {
	return "sonic: unsupported tool " + e.Name
}
