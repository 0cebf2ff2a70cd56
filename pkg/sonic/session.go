package sonic

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// StreamSession is the caller-facing handle for one live session. It
// owns the audio ingestion buffer that smooths bursty caller audio into
// batched outbound frames.
type StreamSession struct {
	id     string
	client *Client
	s      *session
	buf    *audioBuffer
}

func newStreamSession(c *Client, s *session) *StreamSession {
	ss := &StreamSession{id: s.id, client: c, s: s}
	ss.buf = newAudioBuffer(c.cfg.MaxAudioQueue, c.cfg.AudioBatchSize, c.logger, s.id,
		func(chunk []byte) error { return c.streamAudioChunk(s, chunk) },
		func() bool { return s.active.Load() },
	)
	if c.cfg.OnAudioDropped != nil {
		ss.buf.onDrop = func() { c.cfg.OnAudioDropped(s.id) }
	}
	return ss
}

func (ss *StreamSession) ID() string { return ss.id }

// OnEvent registers a handler for one event type; EventAny receives all
// events. Returns the session for chaining.
func (ss *StreamSession) OnEvent(eventType string, fn Handler) *StreamSession {
	ss.s.handlers.register(eventType, fn)
	return ss
}

// SetupPromptStart stages the prompt: output modalities and the tool
// configuration advertised to the model.
func (ss *StreamSession) SetupPromptStart() error {
	return ss.client.setupPromptStart(ss.s)
}

// SetupSystemPrompt queues the system prompt as a SYSTEM text content
// block.
func (ss *StreamSession) SetupSystemPrompt(prompt string) error {
	return ss.client.setupSystemPrompt(ss.s, DefaultTextConfig(), prompt)
}

// SetupStartAudio opens the audio content block; StreamAudio chunks flow
// into it afterwards.
func (ss *StreamSession) SetupStartAudio() error {
	return ss.client.setupStartAudio(ss.s)
}

// StreamAudio buffers one raw PCM chunk for asynchronous forwarding.
// When the buffer is full the oldest chunk is dropped, keeping the
// freshest audio under sustained pressure.
func (ss *StreamSession) StreamAudio(chunk []byte) error {
	if !ss.s.active.Load() {
		return ErrSessionInactive
	}
	ss.buf.push(chunk)
	return nil
}

// EndAudioContent closes the audio content block if one was opened.
func (ss *StreamSession) EndAudioContent(ctx context.Context) error {
	return ss.client.sendContentEnd(ctx, ss.s)
}

// EndPrompt closes the prompt if one was started.
func (ss *StreamSession) EndPrompt(ctx context.Context) error {
	return ss.client.sendPromptEnd(ctx, ss.s)
}

// Close tears the session down in protocol order.
func (ss *StreamSession) Close(ctx context.Context) error {
	return ss.client.CloseSession(ctx, ss.id)
}

// ForceClose abandons the session immediately without the protocol
// goodbye.
func (ss *StreamSession) ForceClose() {
	ss.client.ForceCloseSession(ss.id)
}

// audioBuffer decouples audio producers from the outbound queue. Pushes
// never block; a single drain worker forwards chunks in small batches,
// handing off to a fresh goroutine between batches so one long burst
// cannot monopolize a scheduler slot.
type audioBuffer struct {
	mu       sync.Mutex
	chunks   [][]byte
	draining bool

	max    int
	batch  int
	logger *slog.Logger
	id     string
	emit   func([]byte) error
	live   func() bool
	onDrop func()
}

func newAudioBuffer(max, batch int, logger *slog.Logger, id string, emit func([]byte) error, live func() bool) *audioBuffer {
	return &audioBuffer{
		max:    max,
		batch:  batch,
		logger: logger,
		id:     id,
		emit:   emit,
		live:   live,
	}
}

func (b *audioBuffer) push(chunk []byte) {
	b.mu.Lock()
	if len(b.chunks) >= b.max {
		b.chunks = b.chunks[1:]
		b.logger.Debug("audio buffer full, dropping oldest chunk", "session_id", b.id)
		if b.onDrop != nil {
			b.onDrop()
		}
	}
	b.chunks = append(b.chunks, chunk)
	start := !b.draining
	if start {
		b.draining = true
	}
	b.mu.Unlock()
	if start {
		go b.drain()
	}
}

// drain forwards up to one batch, then either finishes or reschedules
// itself. The draining flag stays set across the handoff, so at most one
// drain runs at any time.
func (b *audioBuffer) drain() {
	if !b.live() {
		b.stop(true)
		return
	}

	b.mu.Lock()
	n := min(b.batch, len(b.chunks))
	batch := b.chunks[:n:n]
	b.chunks = b.chunks[n:]
	b.mu.Unlock()

	for _, chunk := range batch {
		if err := b.emit(chunk); err != nil {
			if errors.Is(err, ErrSessionInactive) {
				b.stop(true)
				return
			}
			b.logger.Error("failed to forward audio chunk", "session_id", b.id, "error", err)
		}
	}

	b.mu.Lock()
	more := len(b.chunks) > 0
	if !more {
		b.draining = false
	}
	b.mu.Unlock()
	if more {
		go b.drain()
	}
}

func (b *audioBuffer) stop(discard bool) {
	b.mu.Lock()
	if discard {
		b.chunks = nil
	}
	b.draining = false
	b.mu.Unlock()
}

func (b *audioBuffer) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}
