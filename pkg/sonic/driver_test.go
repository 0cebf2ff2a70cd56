package sonic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStream struct {
	ch  chan TransportEvent
	err error
}

func (f *fakeStream) Events() <-chan TransportEvent { return f.ch }
func (f *fakeStream) Err() error                    { return f.err }

// fakeTransport pumps the frame source into sent and plays back whatever
// the test pushes through stream.ch.
type fakeTransport struct {
	openErr error
	stream  *fakeStream
	opened  chan struct{}
	done    chan struct{}

	mu   sync.Mutex
	sent [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		stream: &fakeStream{ch: make(chan TransportEvent, 16)},
		opened: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (tr *fakeTransport) Open(ctx context.Context, modelID string, frames FrameSource) (InboundStream, error) {
	if tr.openErr != nil {
		return nil, tr.openErr
	}
	close(tr.opened)
	go func() {
		defer close(tr.done)
		for {
			b, err := frames.Next(ctx)
			if err != nil {
				return
			}
			tr.mu.Lock()
			tr.sent = append(tr.sent, b)
			tr.mu.Unlock()
		}
	}()
	return tr.stream, nil
}

func (tr *fakeTransport) sentFrames(t *testing.T) []map[string]json.RawMessage {
	t.Helper()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]map[string]json.RawMessage, 0, len(tr.sent))
	for _, b := range tr.sent {
		var envelope struct {
			Event map[string]json.RawMessage `json:"event"`
		}
		if err := json.Unmarshal(b, &envelope); err != nil {
			t.Fatalf("unmarshal sent frame: %v", err)
		}
		out = append(out, envelope.Event)
	}
	return out
}

func (tr *fakeTransport) sentTypes(t *testing.T) []string {
	t.Helper()
	frames := tr.sentFrames(t)
	types := make([]string, 0, len(frames))
	for _, f := range frames {
		for k := range f {
			types = append(types, k)
		}
	}
	return types
}

func (tr *fakeTransport) sentCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.sent)
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []ToolInput
	names  []string
	result any
	err    error
	specs  []ToolSpec
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, name string, input ToolInput) (any, error) {
	d.mu.Lock()
	d.calls = append(d.calls, input)
	d.names = append(d.names, name)
	d.mu.Unlock()
	return d.result, d.err
}

func (d *fakeDispatcher) Specs() []ToolSpec { return d.specs }

func inboundChunk(t *testing.T, eventType string, body any) TransportEvent {
	t.Helper()
	b, err := json.Marshal(map[string]any{"event": map[string]any{eventType: body}})
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	return TransportEvent{Chunk: b}
}

func TestInitiateSessionSetupFrameOrder(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	c := newTestClient(t, tr, nil)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ret := make(chan error, 1)
	go func() { ret <- c.InitiateSession(context.Background(), "s1") }()
	<-tr.opened

	if err := ss.SetupPromptStart(); err != nil {
		t.Fatalf("prompt start: %v", err)
	}
	if err := ss.SetupSystemPrompt("be brief"); err != nil {
		t.Fatalf("system prompt: %v", err)
	}
	if err := ss.SetupStartAudio(); err != nil {
		t.Fatalf("start audio: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return tr.sentCount() >= 6 }, "setup frames never reached transport")
	close(tr.stream.ch)
	if err := <-ret; err != nil {
		t.Fatalf("initiate: %v", err)
	}
	<-tr.done

	want := []string{
		EventSessionStart, EventPromptStart,
		EventContentStart, EventTextInput, EventContentEnd,
		EventContentStart,
		EventContentEnd, EventPromptEnd, EventSessionEnd,
	}
	got := tr.sentTypes(t)
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d is %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}

	frames := tr.sentFrames(t)
	var sys contentStartTextBody
	if err := json.Unmarshal(frames[2][EventContentStart], &sys); err != nil {
		t.Fatalf("unmarshal system contentStart: %v", err)
	}
	if sys.Role != "SYSTEM" || sys.Type != "TEXT" {
		t.Fatalf("system contentStart role=%s type=%s", sys.Role, sys.Type)
	}
	var audio contentStartAudioBody
	if err := json.Unmarshal(frames[5][EventContentStart], &audio); err != nil {
		t.Fatalf("unmarshal audio contentStart: %v", err)
	}
	if audio.Type != "AUDIO" || audio.AudioInputConfiguration.SampleRateHertz != 16000 {
		t.Fatalf("audio contentStart %+v", audio)
	}
}

func TestPromptStartAdvertisesTools(t *testing.T) {
	t.Parallel()

	tools := &fakeDispatcher{specs: []ToolSpec{
		{Name: "greeting", Description: "greets", Schema: `{"type":"object"}`},
		{Name: "safety_response", Description: "refuses", Schema: `{"type":"object"}`},
	}}
	tr := newFakeTransport()
	c := newTestClient(t, tr, tools)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	go c.InitiateSession(context.Background(), "s1")
	<-tr.opened
	if err := ss.SetupPromptStart(); err != nil {
		t.Fatalf("prompt start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return tr.sentCount() >= 2 }, "promptStart never sent")

	var body promptStartBody
	if err := json.Unmarshal(tr.sentFrames(t)[1][EventPromptStart], &body); err != nil {
		t.Fatalf("unmarshal promptStart: %v", err)
	}
	if len(body.ToolConfiguration.Tools) != 2 {
		t.Fatalf("advertised %d tools, want 2", len(body.ToolConfiguration.Tools))
	}
	if got := body.ToolConfiguration.Tools[0].ToolSpec.Name; got != "greeting" {
		t.Fatalf("first tool %q", got)
	}
	if body.AudioOutputConfiguration.VoiceID != "tiffany" {
		t.Fatalf("voice %q", body.AudioOutputConfiguration.VoiceID)
	}
	close(tr.stream.ch)
}

func TestStreamAudioProducesBase64Frame(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	c := newTestClient(t, tr, nil)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	go c.InitiateSession(context.Background(), "s1")
	<-tr.opened
	if err := ss.SetupStartAudio(); err != nil {
		t.Fatalf("start audio: %v", err)
	}

	chunk := make([]byte, 3200)
	for i := range chunk {
		chunk[i] = byte(i % 251)
	}
	if err := ss.StreamAudio(chunk); err != nil {
		t.Fatalf("stream audio: %v", err)
	}

	var got contentBody
	waitFor(t, 2*time.Second, func() bool {
		for _, f := range tr.sentFrames(t) {
			if body, ok := f[EventAudioInput]; ok {
				if err := json.Unmarshal(body, &got); err != nil {
					t.Fatalf("unmarshal audioInput: %v", err)
				}
				return true
			}
		}
		return false
	}, "audioInput frame never sent")

	if want := base64.StdEncoding.EncodeToString(chunk); got.Content != want {
		t.Fatal("audioInput content is not the base64 of the pushed chunk")
	}
	if got.PromptName == "" || got.ContentName == "" {
		t.Fatalf("audioInput missing identifiers: %+v", got)
	}
	close(tr.stream.ch)
}

func TestToolRoundTrip(t *testing.T) {
	t.Parallel()

	tools := &fakeDispatcher{result: map[string]any{"ok": true}}
	tr := newFakeTransport()
	c := newTestClient(t, tr, tools)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var mu sync.Mutex
	var toolEnd ToolEndEvent
	var toolResult ToolResultEvent
	ss.OnEvent(EventToolEnd, func(data any) {
		mu.Lock()
		toolEnd = data.(ToolEndEvent)
		mu.Unlock()
	})
	ss.OnEvent(EventToolResult, func(data any) {
		mu.Lock()
		toolResult = data.(ToolResultEvent)
		mu.Unlock()
	})

	go c.InitiateSession(context.Background(), "s1")
	<-tr.opened

	args := `{"greeting_type":"initial"}`
	tr.stream.ch <- inboundChunk(t, EventToolUse, map[string]any{
		"toolUseId": "tu-1",
		"toolName":  "greeting",
		"content":   args,
	})
	tr.stream.ch <- inboundChunk(t, EventContentEnd, map[string]any{"type": "TOOL"})

	waitFor(t, 2*time.Second, func() bool {
		types := tr.sentTypes(t)
		for _, ty := range types {
			if ty == EventToolResult {
				return true
			}
		}
		return false
	}, "tool result frames never sent")

	// The answer is the contentStart/toolResult/contentEnd triple, with
	// contentStart referencing the model's toolUseId.
	frames := tr.sentFrames(t)
	var start contentStartToolBody
	var result contentBody
	for i, f := range frames {
		if body, ok := f[EventToolResult]; ok {
			if err := json.Unmarshal(frames[i-1][EventContentStart], &start); err != nil {
				t.Fatalf("unmarshal tool contentStart: %v", err)
			}
			if err := json.Unmarshal(body, &result); err != nil {
				t.Fatalf("unmarshal toolResult: %v", err)
			}
			if _, ok := frames[i+1][EventContentEnd]; !ok {
				t.Fatal("toolResult not followed by contentEnd")
			}
		}
	}
	if start.Type != "TOOL" || start.ToolResultInputConfiguration.ToolUseID != "tu-1" {
		t.Fatalf("tool contentStart %+v", start)
	}
	if result.Content != `{"ok":true}` {
		t.Fatalf("tool result content %q", result.Content)
	}

	tools.mu.Lock()
	if len(tools.names) != 1 || tools.names[0] != "greeting" || tools.calls[0].Content != args {
		t.Fatalf("dispatcher saw %v %v", tools.names, tools.calls)
	}
	tools.mu.Unlock()

	mu.Lock()
	if toolEnd.ToolUseID != "tu-1" || toolEnd.ToolName != "greeting" || toolEnd.Content != args {
		t.Fatalf("toolEnd event %+v", toolEnd)
	}
	if toolResult.ToolUseID != "tu-1" {
		t.Fatalf("toolResult event %+v", toolResult)
	}
	mu.Unlock()
	close(tr.stream.ch)
}

func TestUnknownToolKeepsSessionAlive(t *testing.T) {
	t.Parallel()

	tools := &fakeDispatcher{err: &UnsupportedToolError{Name: "mystery"}}
	tr := newFakeTransport()
	c := newTestClient(t, tr, tools)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	errs := make(chan ErrorEvent, 1)
	texts := make(chan json.RawMessage, 1)
	ss.OnEvent(EventError, func(data any) { errs <- data.(ErrorEvent) })
	ss.OnEvent(EventTextOutput, func(data any) { texts <- data.(json.RawMessage) })

	go c.InitiateSession(context.Background(), "s1")
	<-tr.opened

	tr.stream.ch <- inboundChunk(t, EventToolUse, map[string]any{
		"toolUseId": "tu-9", "toolName": "mystery", "content": "{}",
	})
	tr.stream.ch <- inboundChunk(t, EventContentEnd, map[string]any{"type": "TOOL"})

	select {
	case ev := <-errs:
		if ev.Source != "toolUse" {
			t.Fatalf("error event source %q", ev.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error event for unknown tool")
	}
	if !c.IsSessionActive("s1") {
		t.Fatal("session died on unknown tool")
	}

	// Read loop is still running.
	tr.stream.ch <- inboundChunk(t, EventTextOutput, map[string]any{"content": "still here"})
	select {
	case <-texts:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop stopped after unknown tool")
	}
	close(tr.stream.ch)
}

func TestInitiateSessionOpenFailure(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.openErr = errors.New("no credentials")
	c := newTestClient(t, tr, nil)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var got ErrorEvent
	ss.OnEvent(EventError, func(data any) { got = data.(ErrorEvent) })

	if err := c.InitiateSession(context.Background(), "s1"); err == nil {
		t.Fatal("expected open error")
	}
	if got.Source != "bidirectionalStream" {
		t.Fatalf("error event %+v", got)
	}
	if c.IsSessionActive("s1") {
		t.Fatal("session should be closed after open failure")
	}
}

func TestInitiateSessionStreamFailure(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.stream.err = errors.New("connection reset")
	c := newTestClient(t, tr, nil)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	errs := make(chan ErrorEvent, 1)
	ss.OnEvent(EventError, func(data any) { errs <- data.(ErrorEvent) })

	ret := make(chan error, 1)
	go func() { ret <- c.InitiateSession(context.Background(), "s1") }()
	<-tr.opened
	close(tr.stream.ch)

	if err := <-ret; err == nil {
		t.Fatal("expected stream error")
	}
	select {
	case ev := <-errs:
		if ev.Source != "responseStream" {
			t.Fatalf("error event %+v", ev)
		}
	default:
		t.Fatal("no error event for stream failure")
	}
	if c.IsSessionActive("s1") {
		t.Fatal("session should be closed after stream failure")
	}
}

func TestModelStreamErrorBecomesErrorEvent(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	c := newTestClient(t, tr, nil)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	errs := make(chan ErrorEvent, 1)
	done := make(chan StreamCompleteEvent, 1)
	ss.OnEvent(EventError, func(data any) { errs <- data.(ErrorEvent) })
	ss.OnEvent(EventStreamComplete, func(data any) { done <- data.(StreamCompleteEvent) })

	ret := make(chan error, 1)
	go func() { ret <- c.InitiateSession(context.Background(), "s1") }()
	<-tr.opened

	tr.stream.ch <- TransportEvent{Err: &StreamError{
		Type:    "modelStreamErrorException",
		Message: "throttled",
	}}

	select {
	case ev := <-errs:
		if ev.Type != "modelStreamErrorException" {
			t.Fatalf("error event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error event")
	}

	close(tr.stream.ch)
	if err := <-ret; err != nil {
		t.Fatalf("initiate: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("no streamComplete after clean end")
	}
}

func TestUnrecognizedEventForwardedByName(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	c := newTestClient(t, tr, nil)
	ss, err := c.CreateSession("s1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got := make(chan AnyEvent, 1)
	ss.OnEvent(EventAny, func(data any) {
		ae := data.(AnyEvent)
		if ae.Type == "usageEvent" {
			got <- ae
		}
	})

	go c.InitiateSession(context.Background(), "s1")
	<-tr.opened
	tr.stream.ch <- inboundChunk(t, "usageEvent", map[string]any{"totalTokens": 42})

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("unrecognized event not forwarded")
	}
	close(tr.stream.ch)
}

func TestInitiateSessionUnknownID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, newFakeTransport(), nil)
	if err := c.InitiateSession(context.Background(), "ghost"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStringToolResultPassesThroughVerbatim(t *testing.T) {
	t.Parallel()

	tools := &fakeDispatcher{result: `{"already":"encoded"}`}
	tr := newFakeTransport()
	c := newTestClient(t, tr, tools)
	if _, err := c.CreateSession("s1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	go c.InitiateSession(context.Background(), "s1")
	<-tr.opened
	tr.stream.ch <- inboundChunk(t, EventToolUse, map[string]any{
		"toolUseId": "tu-2", "toolName": "echo", "content": "{}",
	})
	tr.stream.ch <- inboundChunk(t, EventContentEnd, map[string]any{"type": "TOOL"})

	var result contentBody
	waitFor(t, 2*time.Second, func() bool {
		for _, f := range tr.sentFrames(t) {
			if body, ok := f[EventToolResult]; ok {
				if err := json.Unmarshal(body, &result); err != nil {
					t.Fatalf("unmarshal toolResult: %v", err)
				}
				return true
			}
		}
		return false
	}, "tool result never sent")

	if result.Content != `{"already":"encoded"}` {
		t.Fatalf("string result re-encoded: %q", result.Content)
	}
	close(tr.stream.ch)
}
