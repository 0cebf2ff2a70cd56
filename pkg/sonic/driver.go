package sonic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
)

// frameSource adapts a session's outbound queue to the transport's pull
// interface. The queue closes during finalize and drains before
// reporting closed, so every queued frame reaches the wire ahead of the
// io.EOF. A context failure deactivates the session so producers stop
// enqueueing.
type frameSource struct {
	c *Client
	s *session
}

func (fs *frameSource) Next(ctx context.Context) ([]byte, error) {
	f, err := fs.s.queue.dequeue(ctx)
	if errors.Is(err, errQueueClosed) {
		return nil, io.EOF
	}
	if err != nil {
		fs.s.active.Store(false)
		return nil, err
	}
	fs.c.touch(fs.s.id)
	return json.Marshal(f)
}

// InitiateSession queues sessionStart, opens the duplex stream, and runs
// the read loop until the inbound side ends. It blocks for the life of
// the exchange; callers run it on its own goroutine. Both terminal
// states converge on an orderly close if the session is still active.
func (c *Client) InitiateSession(ctx context.Context, id string) error {
	s := c.get(id)
	if s == nil {
		return ErrSessionNotFound
	}

	c.enqueue(s, sessionStartFrame(s.infer))

	stream, err := c.transport.Open(ctx, c.cfg.ModelID, &frameSource{c: c, s: s})
	if err != nil {
		c.logger.Error("failed to open bidirectional stream", "session_id", id, "error", err)
		c.dispatchEvent(s, EventError, ErrorEvent{Source: "bidirectionalStream", Message: err.Error()})
		if s.active.Load() {
			c.CloseSession(ctx, id)
		}
		return err
	}

	c.readLoop(ctx, s, stream)

	if err := stream.Err(); err != nil {
		c.logger.Error("response stream failed", "session_id", id, "error", err)
		c.dispatchEvent(s, EventError, ErrorEvent{Source: "responseStream", Message: err.Error()})
		if s.active.Load() {
			c.CloseSession(ctx, id)
		}
		return err
	}

	c.dispatchEvent(s, EventStreamComplete, StreamCompleteEvent{Timestamp: c.now()})
	if s.active.Load() {
		return c.CloseSession(ctx, id)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, s *session, stream InboundStream) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			if ev.Err != nil {
				c.dispatchEvent(s, EventError, ErrorEvent{
					Source:  "responseStream",
					Type:    ev.Err.Type,
					Message: ev.Err.Message,
				})
				continue
			}
			c.handleChunk(ctx, s, ev.Chunk)
		}
	}
}

// handleChunk decodes one inbound event envelope and routes it. Malformed
// chunks are logged and skipped; the stream keeps going.
func (c *Client) handleChunk(ctx context.Context, s *session, chunk []byte) {
	c.touch(s.id)

	var envelope struct {
		Event map[string]json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(chunk, &envelope); err != nil {
		c.logger.Warn("undecodable stream chunk", "session_id", s.id, "error", err)
		return
	}
	if len(envelope.Event) == 0 {
		if len(chunk) > 0 {
			c.dispatchEvent(s, EventUnknown, json.RawMessage(chunk))
		}
		return
	}
	ev := envelope.Event

	if body, ok := ev[EventContentStart]; ok {
		c.dispatchEvent(s, EventContentStart, body)
		return
	}
	if body, ok := ev[EventTextOutput]; ok {
		c.dispatchEvent(s, EventTextOutput, body)
		return
	}
	if body, ok := ev[EventAudioOutput]; ok {
		c.dispatchEvent(s, EventAudioOutput, body)
		return
	}
	if body, ok := ev[EventToolUse]; ok {
		var tu struct {
			ToolUseID string `json:"toolUseId"`
			ToolName  string `json:"toolName"`
			Content   string `json:"content"`
		}
		if err := json.Unmarshal(body, &tu); err != nil {
			c.logger.Warn("undecodable toolUse event", "session_id", s.id, "error", err)
		} else {
			s.setTool(&toolContext{useID: tu.ToolUseID, name: tu.ToolName, content: tu.Content})
		}
		c.dispatchEvent(s, EventToolUse, body)
		return
	}
	if body, ok := ev[EventContentEnd]; ok {
		var ce struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(body, &ce)
		if ce.Type == "TOOL" {
			c.completeToolUse(ctx, s)
			return
		}
		c.dispatchEvent(s, EventContentEnd, body)
		return
	}

	for eventType, body := range ev {
		c.dispatchEvent(s, eventType, body)
	}
}

// completeToolUse runs the captured tool request and queues the result
// back to the model. Dispatch failures become error events; the read
// loop keeps the session alive either way.
func (c *Client) completeToolUse(ctx context.Context, s *session) {
	tc := s.takeTool()
	if tc == nil {
		c.logger.Warn("tool content ended with no pending tool request", "session_id", s.id)
		return
	}

	c.dispatchEvent(s, EventToolEnd, ToolEndEvent{
		ToolUseID: tc.useID,
		ToolName:  tc.name,
		Content:   tc.content,
	})

	result, err := c.tools.Dispatch(ctx, tc.name, ToolInput{ToolUseID: tc.useID, Content: tc.content})
	if err != nil {
		c.logger.Error("tool dispatch failed",
			"session_id", s.id,
			"tool_name", tc.name,
			"error", err)
		c.dispatchEvent(s, EventError, ErrorEvent{Source: "toolUse", Message: err.Error()})
		return
	}

	if err := c.sendToolResult(s, tc.useID, result); err != nil {
		c.logger.Error("failed to queue tool result",
			"session_id", s.id,
			"tool_name", tc.name,
			"error", err)
		c.dispatchEvent(s, EventError, ErrorEvent{Source: "toolUse", Message: err.Error()})
		return
	}

	c.dispatchEvent(s, EventToolResult, ToolResultEvent{ToolUseID: tc.useID, Result: result})
}
