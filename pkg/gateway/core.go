// Package gateway fronts the session manager with a WebSocket endpoint
// plus health, session inventory, and Prometheus metrics routes.
package gateway

import (
	"context"
	"time"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
)

// LiveSession is the per-connection session surface the live handler
// drives. sonic.StreamSession satisfies it through sonicSession.
type LiveSession interface {
	ID() string
	OnEvent(eventType string, fn sonic.Handler)
	SetupPromptStart() error
	SetupSystemPrompt(prompt string) error
	SetupStartAudio() error
	StreamAudio(chunk []byte) error
	EndAudioContent(ctx context.Context) error
	Close(ctx context.Context) error
	ForceClose()
}

// SessionCore is the slice of the session manager the gateway needs.
type SessionCore interface {
	OpenSession() (LiveSession, error)
	// Run drives the bidirectional exchange and blocks until the session
	// ends.
	Run(ctx context.Context, sessionID string) error
	ActiveSessions() []string
	LastActivityTime(sessionID string) (time.Time, bool)
	ForceCloseSession(sessionID string)
}

// SonicCore adapts a sonic.Client to SessionCore. Options apply to
// every session the gateway opens.
type SonicCore struct {
	Client  *sonic.Client
	Options []sonic.SessionOption
}

func (c SonicCore) OpenSession() (LiveSession, error) {
	ss, err := c.Client.CreateSession("", c.Options...)
	if err != nil {
		return nil, err
	}
	return sonicSession{ss}, nil
}

func (c SonicCore) Run(ctx context.Context, sessionID string) error {
	return c.Client.InitiateSession(ctx, sessionID)
}

func (c SonicCore) ActiveSessions() []string { return c.Client.ActiveSessions() }

func (c SonicCore) LastActivityTime(sessionID string) (time.Time, bool) {
	return c.Client.LastActivityTime(sessionID)
}

func (c SonicCore) ForceCloseSession(sessionID string) { c.Client.ForceCloseSession(sessionID) }

type sonicSession struct {
	ss *sonic.StreamSession
}

func (s sonicSession) ID() string { return s.ss.ID() }

func (s sonicSession) OnEvent(eventType string, fn sonic.Handler) { s.ss.OnEvent(eventType, fn) }

func (s sonicSession) SetupPromptStart() error { return s.ss.SetupPromptStart() }

func (s sonicSession) SetupSystemPrompt(prompt string) error { return s.ss.SetupSystemPrompt(prompt) }

func (s sonicSession) SetupStartAudio() error { return s.ss.SetupStartAudio() }

func (s sonicSession) StreamAudio(chunk []byte) error { return s.ss.StreamAudio(chunk) }

func (s sonicSession) EndAudioContent(ctx context.Context) error { return s.ss.EndAudioContent(ctx) }

func (s sonicSession) Close(ctx context.Context) error { return s.ss.Close(ctx) }

func (s sonicSession) ForceClose() { s.ss.ForceClose() }
