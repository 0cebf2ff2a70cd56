// Package sdk is a small Go client for the voxbridge gateway's /live
// WebSocket API.
package sdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultConnectTimeout = 15 * time.Second

// ErrClosed is returned from send methods after Close.
var ErrClosed = errors.New("sdk: live client closed")

// Event is one JSON frame forwarded by the gateway: a session event, a
// stream error, or the ready handshake.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// LiveClient wraps one /live connection. Sends are serialized by an
// internal mutex; events arrive on the Events channel until the
// connection drops.
type LiveClient struct {
	conn      *websocket.Conn
	sessionID string

	events chan Event

	mu     sync.Mutex
	closed bool
	err    error
}

// Dial connects and waits for the gateway's ready frame.
func Dial(ctx context.Context, url string) (*LiveClient, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var ready Event
	if err := conn.ReadJSON(&ready); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read ready frame: %w", err)
	}
	if ready.Type != "ready" {
		conn.Close()
		return nil, fmt.Errorf("unexpected first frame %q", ready.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &LiveClient{
		conn:      conn,
		sessionID: ready.SessionID,
		events:    make(chan Event, 64),
	}
	go c.readPump()
	return c, nil
}

// SessionID is the gateway-assigned session identifier.
func (c *LiveClient) SessionID() string { return c.sessionID }

// Events yields gateway frames in arrival order. The channel closes
// when the connection ends; Err reports why.
func (c *LiveClient) Events() <-chan Event { return c.events }

// Err is valid once Events has closed. A clean close returns nil.
func (c *LiveClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *LiveClient) readPump() {
	defer close(c.events)
	for {
		var ev Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			c.mu.Lock()
			if !c.closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.err = err
			}
			c.mu.Unlock()
			return
		}
		c.events <- ev
	}
}

type controlMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

func (c *LiveClient) send(msg controlMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type, err)
	}
	return nil
}

// PromptStart stages the prompt and advertises the gateway's tools.
func (c *LiveClient) PromptStart() error {
	return c.send(controlMessage{Type: "promptStart"})
}

// SystemPrompt sets the system prompt; empty text selects the
// gateway's default.
func (c *LiveClient) SystemPrompt(text string) error {
	return c.send(controlMessage{Type: "systemPrompt", Text: text})
}

// AudioStart opens the audio input stream.
func (c *LiveClient) AudioStart() error {
	return c.send(controlMessage{Type: "audioStart"})
}

// SendAudio forwards one raw PCM chunk.
func (c *LiveClient) SendAudio(chunk []byte) error {
	return c.send(controlMessage{Type: "audioInput", Audio: base64.StdEncoding.EncodeToString(chunk)})
}

// AudioStop closes the audio input stream.
func (c *LiveClient) AudioStop() error {
	return c.send(controlMessage{Type: "audioStop"})
}

// Close asks the gateway to end the session and closes the connection.
func (c *LiveClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	raw, _ := json.Marshal(controlMessage{Type: "close"})
	_ = c.conn.WriteMessage(websocket.TextMessage, raw)
	err := c.conn.Close()
	c.mu.Unlock()
	return err
}
