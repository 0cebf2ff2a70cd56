package sonic

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// session is the registry-side state for one live exchange.
type session struct {
	id             string
	promptName     string
	audioContentID string

	infer    InferenceConfig
	audioIn  AudioInputConfig
	audioOut AudioOutputConfig

	queue    *eventQueue
	handlers *handlerSet

	active  atomic.Bool
	closing atomic.Bool

	mu              sync.Mutex
	promptStartSent bool
	audioStartSent  bool
	tool            *toolContext
}

// toolContext accumulates the model's tool request across the toolUse
// event and the TOOL contentEnd that commits it.
type toolContext struct {
	useID   string
	name    string
	content string
}

func (s *session) setTool(tc *toolContext) {
	s.mu.Lock()
	s.tool = tc
	s.mu.Unlock()
}

func (s *session) takeTool() *toolContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc := s.tool
	s.tool = nil
	return tc
}

// Client manages bidirectional streaming sessions against a speech model
// runtime: registry, outbound queues, stream driving, tool dispatch, and
// teardown. All methods are safe for concurrent use.
type Client struct {
	transport Transport
	tools     ToolDispatcher
	cfg       Config
	logger    *slog.Logger

	mu           sync.RWMutex
	sessions     map[string]*session
	lastActivity map[string]time.Time

	now func() time.Time
}

// New builds a Client. tools may be nil for sessions without tools.
func New(transport Transport, tools ToolDispatcher, cfg Config) *Client {
	cfg.applyDefaults()
	if tools == nil {
		tools = NoTools{}
	}
	return &Client{
		transport:    transport,
		tools:        tools,
		cfg:          cfg,
		logger:       cfg.Logger,
		sessions:     make(map[string]*session),
		lastActivity: make(map[string]time.Time),
		now:          time.Now,
	}
}

// SessionOption customizes one session at creation time.
type SessionOption func(*session)

// WithInference overrides the client-level inference configuration.
func WithInference(infer InferenceConfig) SessionOption {
	return func(s *session) { s.infer = infer }
}

// WithAudioInput overrides the caller audio format.
func WithAudioInput(cfg AudioInputConfig) SessionOption {
	return func(s *session) { s.audioIn = cfg }
}

// WithAudioOutput overrides the synthesized audio format and voice.
func WithAudioOutput(cfg AudioOutputConfig) SessionOption {
	return func(s *session) { s.audioOut = cfg }
}

// CreateSession registers a new session and returns its caller-facing
// handle. An empty id gets a generated UUID. The session starts active;
// no frames flow until InitiateSession.
func (c *Client) CreateSession(id string, opts ...SessionOption) (*StreamSession, error) {
	if id == "" {
		id = uuid.NewString()
	}
	s := &session{
		id:             id,
		promptName:     uuid.NewString(),
		audioContentID: uuid.NewString(),
		infer:          c.cfg.Inference,
		audioIn:        DefaultAudioInputConfig(),
		audioOut:       DefaultAudioOutputConfig(),
		queue:          newEventQueue(),
		handlers:       newHandlerSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.active.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.sessions[id]; exists {
		return nil, ErrSessionExists
	}
	c.sessions[id] = s
	c.lastActivity[id] = c.now()
	return newStreamSession(c, s), nil
}

func (c *Client) get(id string) *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[id]
}

// IsSessionActive reports whether the session exists and has not been
// deactivated.
func (c *Client) IsSessionActive(id string) bool {
	s := c.get(id)
	return s != nil && s.active.Load()
}

// ActiveSessions lists the IDs of all currently active sessions.
func (c *Client) ActiveSessions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.sessions))
	for id, s := range c.sessions {
		if s.active.Load() {
			ids = append(ids, id)
		}
	}
	return ids
}

// LastActivityTime reports when the session last enqueued or received a
// frame.
func (c *Client) LastActivityTime(id string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.lastActivity[id]
	return t, ok
}

func (c *Client) touch(id string) {
	c.mu.Lock()
	if _, ok := c.sessions[id]; ok {
		c.lastActivity[id] = c.now()
	}
	c.mu.Unlock()
}

func (c *Client) removeSession(id string) {
	c.mu.Lock()
	delete(c.sessions, id)
	delete(c.lastActivity, id)
	c.mu.Unlock()
}

// enqueue appends a frame to the session's outbound queue. A no-op once
// the session is inactive, so late producers race teardown safely.
func (c *Client) enqueue(s *session, f Frame) {
	if !s.active.Load() {
		return
	}
	c.touch(s.id)
	s.queue.enqueue(f)
}

// OnEvent registers a handler for one event type of a session. The type
// EventAny receives every event. Re-registering replaces the previous
// handler.
func (c *Client) OnEvent(sessionID, eventType string, fn Handler) error {
	s := c.get(sessionID)
	if s == nil {
		return ErrSessionNotFound
	}
	s.handlers.register(eventType, fn)
	return nil
}

func (c *Client) dispatchEvent(s *session, eventType string, data any) {
	s.handlers.dispatch(c.logger, s.id, eventType, data)
}

func (c *Client) setupPromptStart(s *session) error {
	if !s.active.Load() {
		return ErrSessionInactive
	}
	s.mu.Lock()
	s.promptStartSent = true
	s.mu.Unlock()
	c.enqueue(s, promptStartFrame(s.promptName, s.audioOut, c.tools.Specs()))
	return nil
}

func (c *Client) setupSystemPrompt(s *session, cfg TextConfig, prompt string) error {
	if !s.active.Load() {
		return ErrSessionInactive
	}
	contentName := uuid.NewString()
	c.enqueue(s, contentStartTextFrame(s.promptName, contentName, "SYSTEM", cfg))
	c.enqueue(s, textInputFrame(s.promptName, contentName, prompt))
	c.enqueue(s, contentEndFrame(s.promptName, contentName))
	return nil
}

func (c *Client) setupStartAudio(s *session) error {
	if !s.active.Load() {
		return ErrSessionInactive
	}
	s.mu.Lock()
	s.audioStartSent = true
	s.mu.Unlock()
	c.enqueue(s, contentStartAudioFrame(s.promptName, s.audioContentID, s.audioIn))
	return nil
}

// streamAudioChunk base64-encodes one PCM chunk and queues it. Callers
// go through the session handle's ingestion buffer rather than calling
// this directly.
func (c *Client) streamAudioChunk(s *session, chunk []byte) error {
	s.mu.Lock()
	started := s.audioStartSent
	s.mu.Unlock()
	if !s.active.Load() || !started {
		return ErrSessionInactive
	}
	b64 := base64.StdEncoding.EncodeToString(chunk)
	c.enqueue(s, audioInputFrame(s.promptName, s.audioContentID, b64))
	return nil
}

// sendToolResult queues the contentStart/toolResult/contentEnd triple
// that answers one tool request. String results pass through verbatim;
// everything else is JSON-encoded.
func (c *Client) sendToolResult(s *session, toolUseID string, result any) error {
	if !s.active.Load() {
		return ErrSessionInactive
	}
	content, ok := result.(string)
	if !ok {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		content = string(b)
	}
	contentName := uuid.NewString()
	c.enqueue(s, contentStartToolFrame(s.promptName, contentName, toolUseID))
	c.enqueue(s, toolResultFrame(s.promptName, contentName, content))
	c.enqueue(s, contentEndFrame(s.promptName, contentName))
	return nil
}
