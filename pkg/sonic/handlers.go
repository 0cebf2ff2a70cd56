package sonic

import (
	"log/slog"
	"sync"
	"time"
)

// Handler receives the decoded payload of one session event. Protocol
// events carry json.RawMessage; synthetic events carry the typed values
// below.
type Handler func(data any)

// AnyEvent is what a wildcard handler receives: the event's type name
// plus the payload a typed handler would have seen.
type AnyEvent struct {
	Type string
	Data any
}

// ToolEndEvent fires when the model finishes streaming a tool request,
// before the tool runs. Content is the raw argument payload string.
type ToolEndEvent struct {
	ToolUseID string
	ToolName  string
	Content   string
}

// ToolResultEvent fires after a tool result has been queued back to the
// model.
type ToolResultEvent struct {
	ToolUseID string
	Result    any
}

// ErrorEvent carries stream and dispatch failures that do not tear the
// session down by themselves.
type ErrorEvent struct {
	Source  string
	Type    string
	Message string
}

// StreamCompleteEvent fires once the inbound stream ends cleanly.
type StreamCompleteEvent struct {
	Timestamp time.Time
}

// handlerSet holds one handler per event type plus one wildcard slot.
// Re-registering a type replaces the previous handler.
type handlerSet struct {
	mu       sync.RWMutex
	byType   map[string]Handler
	wildcard Handler
}

func newHandlerSet() *handlerSet {
	return &handlerSet{byType: make(map[string]Handler)}
}

func (h *handlerSet) register(eventType string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if eventType == EventAny {
		h.wildcard = fn
		return
	}
	h.byType[eventType] = fn
}

// dispatch invokes the typed handler and then the wildcard. A panic in
// either is recovered and logged so one bad callback cannot take the
// read loop down or starve the other handler.
func (h *handlerSet) dispatch(logger *slog.Logger, sessionID, eventType string, data any) {
	h.mu.RLock()
	typed := h.byType[eventType]
	wildcard := h.wildcard
	h.mu.RUnlock()

	if typed != nil {
		safeInvoke(logger, sessionID, eventType, typed, data)
	}
	if wildcard != nil {
		safeInvoke(logger, sessionID, EventAny, wildcard, AnyEvent{Type: eventType, Data: data})
	}
}

func safeInvoke(logger *slog.Logger, sessionID, eventType string, fn Handler, data any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked",
				"session_id", sessionID,
				"event_type", eventType,
				"panic", r)
		}
	}()
	fn(data)
}
