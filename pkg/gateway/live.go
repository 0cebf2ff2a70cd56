package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
)

// LiveHandler serves the /live WebSocket endpoint: one session per
// connection, JSON control messages in, session events out.
type LiveHandler struct {
	Core    SessionCore
	Metrics *Metrics
	Logger  *slog.Logger

	// SystemPrompt is used when the client sends a systemPrompt message
	// without text.
	SystemPrompt string

	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.MaxMessageBytes)
	}

	ss, err := h.Core.OpenSession()
	if err != nil {
		h.Logger.Error("failed to open session", "error", err)
		_ = conn.WriteMessage(websocket.TextMessage, encodeServerFrame(serverFrame{
			Type: "error",
			Data: map[string]any{"message": "failed to open session"},
		}))
		return
	}
	defer h.Core.ForceCloseSession(ss.ID())

	h.Metrics.ActiveSessions.Inc()
	defer h.Metrics.ActiveSessions.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan []byte, 64)
	ss.OnEvent(sonic.EventAny, func(data any) {
		ev, ok := data.(sonic.AnyEvent)
		if !ok {
			return
		}
		select {
		case frames <- encodeServerFrame(serverFrame{Type: ev.Type, Data: ev.Data}):
		default:
			h.Logger.Warn("outbound frame queue full, dropping event",
				"session_id", ss.ID(), "event", ev.Type)
		}
	})

	writerDone := make(chan error, 1)
	wtr := &outboundWriter{
		ws:           conn,
		frames:       frames,
		pingInterval: h.PingInterval,
		writeTimeout: h.WriteTimeout,
	}
	go func() { writerDone <- wtr.run(ctx) }()

	runDone := make(chan error, 1)
	go func() { runDone <- h.Core.Run(ctx, ss.ID()) }()

	frames <- encodeServerFrame(serverFrame{Type: "ready", SessionID: ss.ID()})
	h.Logger.Info("live session opened", "session_id", ss.ID(), "remote", r.RemoteAddr)

	h.readLoop(ctx, conn, ss, frames)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := ss.Close(closeCtx); err != nil {
		h.Logger.Warn("orderly close failed", "session_id", ss.ID(), "error", err)
	}
	closeCancel()
	cancel()

	<-writerDone
	if err := <-runDone; err != nil {
		h.Logger.Warn("session ended with error", "session_id", ss.ID(), "error", err)
	}
	h.Logger.Info("live session closed", "session_id", ss.ID())
}

// readLoop consumes client control messages until the connection drops,
// the client asks to close, or the session dies.
func (h LiveHandler) readLoop(ctx context.Context, conn *websocket.Conn, ss LiveSession, frames chan<- []byte) {
	reject := func(message string) {
		select {
		case frames <- encodeServerFrame(serverFrame{Type: "error", Data: map[string]any{"message": message}}):
		default:
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := decodeClientMessage(raw)
		if err != nil {
			reject("invalid message")
			continue
		}
		h.Metrics.FramesForwarded.Inc()

		switch msg.Type {
		case msgPromptStart:
			err = ss.SetupPromptStart()
		case msgSystemPrompt:
			prompt := msg.Text
			if prompt == "" {
				prompt = h.SystemPrompt
			}
			err = ss.SetupSystemPrompt(prompt)
		case msgAudioStart:
			err = ss.SetupStartAudio()
		case msgAudioInput:
			chunk, decErr := base64.StdEncoding.DecodeString(msg.Audio)
			if decErr != nil {
				reject("invalid audio payload")
				continue
			}
			err = ss.StreamAudio(chunk)
		case msgAudioStop:
			err = ss.EndAudioContent(ctx)
		case msgClose:
			return
		default:
			reject("unknown message type: " + msg.Type)
			continue
		}

		if err != nil {
			if errors.Is(err, sonic.ErrSessionInactive) {
				return
			}
			h.Logger.Warn("control message failed",
				"session_id", ss.ID(), "message_type", msg.Type, "error", err)
			reject(msg.Type + " failed")
		}
	}
}
