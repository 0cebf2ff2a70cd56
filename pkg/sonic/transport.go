package sonic

import "context"

// FrameSource is a pull-based sequence of serialized outbound frames.
// Next blocks until a frame is ready, returns io.EOF once the session is
// over, or ctx.Err() if the caller gives up first.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// StreamError is a recoverable model-side failure surfaced inside the
// inbound stream rather than as a transport failure.
type StreamError struct {
	Type    string
	Message string
}

// TransportEvent is one inbound stream element: either a decoded event
// chunk or a model-side stream error.
type TransportEvent struct {
	Chunk []byte
	Err   *StreamError
}

// InboundStream is the receive half of an open duplex exchange. Events
// closes when the stream ends; Err reports the terminal failure, if any,
// once Events has closed.
type InboundStream interface {
	Events() <-chan TransportEvent
	Err() error
}

// Transport opens a bidirectional exchange with the model runtime. The
// implementation consumes frames until io.EOF and delivers inbound
// chunks until the remote side finishes.
type Transport interface {
	Open(ctx context.Context, modelID string, frames FrameSource) (InboundStream, error)
}
