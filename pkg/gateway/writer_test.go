package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordedMessage struct {
	messageType int
	data        []byte
}

type fakeWSConn struct {
	mu       sync.Mutex
	messages []recordedMessage
	controls []recordedMessage
	closed   bool
}

func (c *fakeWSConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeWSConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, recordedMessage{messageType, append([]byte(nil), data...)})
	return nil
}

func (c *fakeWSConn) WriteControl(messageType int, data []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, recordedMessage{messageType, append([]byte(nil), data...)})
	return nil
}

func (c *fakeWSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeWSConn) messageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeWSConn) controlTypes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.controls))
	for _, m := range c.controls {
		out = append(out, m.messageType)
	}
	return out
}

func TestWriterSerializesFrames(t *testing.T) {
	t.Parallel()

	conn := &fakeWSConn{}
	frames := make(chan []byte, 8)
	w := &outboundWriter{ws: conn, frames: frames, pingInterval: time.Hour, writeTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()

	frames <- []byte(`{"type":"ready"}`)
	frames <- []byte(`{"type":"textOutput"}`)

	waitFor(t, 2*time.Second, func() bool { return conn.messageCount() == 2 }, "frames not written")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if string(conn.messages[0].data) != `{"type":"ready"}` {
		t.Fatalf("first frame %q", conn.messages[0].data)
	}
	if conn.messages[0].messageType != websocket.TextMessage {
		t.Fatalf("message type %d", conn.messages[0].messageType)
	}
	if !conn.closed {
		t.Fatal("connection not closed on shutdown")
	}
}

func TestWriterFlushesQueuedFramesOnShutdown(t *testing.T) {
	t.Parallel()

	conn := &fakeWSConn{}
	frames := make(chan []byte, 8)
	frames <- []byte("a")
	frames <- []byte("b")

	w := &outboundWriter{ws: conn, frames: frames, pingInterval: time.Hour, writeTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := conn.messageCount(); got != 2 {
		t.Fatalf("flushed %d frames, want 2", got)
	}
	types := conn.controlTypes()
	if len(types) != 1 || types[0] != websocket.CloseMessage {
		t.Fatalf("controls %v", types)
	}
}

func TestWriterSendsPings(t *testing.T) {
	t.Parallel()

	conn := &fakeWSConn{}
	frames := make(chan []byte)
	w := &outboundWriter{ws: conn, frames: frames, pingInterval: 5 * time.Millisecond, writeTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx) }()

	waitFor(t, 2*time.Second, func() bool {
		for _, mt := range conn.controlTypes() {
			if mt == websocket.PingMessage {
				return true
			}
		}
		return false
	}, "no ping sent")

	cancel()
	<-done
}

func TestWriterExitsWhenFramesClose(t *testing.T) {
	t.Parallel()

	conn := &fakeWSConn{}
	frames := make(chan []byte)
	close(frames)

	w := &outboundWriter{ws: conn, frames: frames, pingInterval: time.Hour, writeTimeout: time.Second}
	if err := w.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}
