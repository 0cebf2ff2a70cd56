// Package bedrock implements sonic.Transport against the Amazon Bedrock
// invoke-with-bidirectional-stream endpoint: SigV4-signed HTTP/2 with
// AWS binary event-stream framing in both directions.
package bedrock

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"golang.org/x/net/http2"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
)

const (
	signingService = "bedrock"
	// The body is streamed, so its hash cannot be known at signing time.
	unsignedPayload = "UNSIGNED-PAYLOAD"

	eventStreamContentType = "application/vnd.amazon.eventstream"
)

// Config tunes the transport. Region is required unless the default AWS
// config chain provides one.
type Config struct {
	Region   string
	Endpoint string // override, mostly for tests

	// HTTPClient must speak HTTP/2; the default client forces it.
	HTTPClient *http.Client

	Logger *slog.Logger
}

type Option func(*Transport)

// WithStaticCredentials bypasses the default AWS credential chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(t *Transport) {
		t.creds = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	}
}

// WithCredentials injects an arbitrary credentials provider.
func WithCredentials(p aws.CredentialsProvider) Option {
	return func(t *Transport) { t.creds = p }
}

// Transport opens bidirectional streams against Bedrock. Safe for
// concurrent use; each Open is an independent exchange.
type Transport struct {
	region   string
	endpoint string
	creds    aws.CredentialsProvider
	signer   *v4.Signer
	client   *http.Client
	logger   *slog.Logger
}

// New resolves credentials and fails fast if none are available, so a
// misconfigured process dies at startup instead of on the first session.
func New(ctx context.Context, cfg Config, opts ...Option) (*Transport, error) {
	t := &Transport{
		region: cfg.Region,
		signer: v4.NewSigner(),
		client: cfg.HTTPClient,
		logger: cfg.Logger,
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.creds == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		t.creds = awsCfg.Credentials
		if t.region == "" {
			t.region = awsCfg.Region
		}
	}
	if t.region == "" {
		return nil, errors.New("bedrock: region not configured")
	}
	if _, err := t.creds.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("resolve aws credentials: %w", err)
	}

	t.endpoint = cfg.Endpoint
	if t.endpoint == "" {
		t.endpoint = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", t.region)
	}
	if t.client == nil {
		t.client = &http.Client{
			Transport: &http2.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		}
	}
	return t, nil
}

type chunkPayload struct {
	Bytes string `json:"bytes"`
}

// Open starts the duplex exchange. The request body streams frames from
// src until io.EOF; the returned stream yields decoded inbound chunks
// until the remote side finishes.
func (t *Transport) Open(ctx context.Context, modelID string, src sonic.FrameSource) (sonic.InboundStream, error) {
	pr, pw := io.Pipe()
	endpoint := fmt.Sprintf("%s/model/%s/invoke-with-bidirectional-stream",
		t.endpoint, url.PathEscape(modelID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", eventStreamContentType)
	req.Header.Set("Accept", eventStreamContentType)
	req.Header.Set("X-Amz-Content-Sha256", unsignedPayload)

	creds, err := t.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve aws credentials: %w", err)
	}
	if err := t.signer.SignHTTP(ctx, creds, req, unsignedPayload, signingService, t.region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	go t.writeLoop(ctx, pw, src)

	resp, err := t.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("open bidirectional stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		pr.CloseWithError(errors.New("stream rejected"))
		return nil, fmt.Errorf("bedrock returned %s: %s", resp.Status, body)
	}

	st := &stream{
		ch:     make(chan sonic.TransportEvent, 16),
		logger: t.logger,
	}
	go st.readLoop(ctx, resp.Body)
	return st, nil
}

// writeLoop pulls frames, wraps each as an event-stream message whose
// payload is {"bytes":"<base64 JSON>"}, and streams them into the
// request body. FrameSource EOF ends the request body cleanly.
func (t *Transport) writeLoop(ctx context.Context, pw *io.PipeWriter, src sonic.FrameSource) {
	enc := eventstream.NewEncoder()
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			pw.Close()
			return
		}
		if err != nil {
			pw.CloseWithError(err)
			return
		}

		payload, err := json.Marshal(chunkPayload{
			Bytes: base64.StdEncoding.EncodeToString(frame),
		})
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		msg := eventstream.Message{
			Headers: eventstream.Headers{
				{Name: ":message-type", Value: eventstream.StringValue("event")},
				{Name: ":event-type", Value: eventstream.StringValue("chunk")},
				{Name: ":content-type", Value: eventstream.StringValue("application/json")},
			},
			Payload: payload,
		}
		if err := enc.Encode(pw, msg); err != nil {
			t.logger.Warn("failed to write stream frame", "error", err)
			pw.CloseWithError(err)
			return
		}
	}
}

type stream struct {
	ch     chan sonic.TransportEvent
	errv   error
	logger *slog.Logger
}

func (s *stream) Events() <-chan sonic.TransportEvent { return s.ch }

// Err is valid once Events has closed.
func (s *stream) Err() error { return s.errv }

func (s *stream) readLoop(ctx context.Context, body io.ReadCloser) {
	defer close(s.ch)
	defer body.Close()

	dec := eventstream.NewDecoder()
	buf := make([]byte, 0, 4096)
	for {
		msg, err := dec.Decode(body, buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.errv = fmt.Errorf("decode stream frame: %w", err)
			}
			return
		}

		ev, ok := classify(msg)
		if !ok {
			continue
		}
		select {
		case s.ch <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// classify maps one event-stream message to a transport event. Exception
// messages become in-band stream errors; chunk messages carry the
// base64-decoded event JSON.
func classify(msg eventstream.Message) (sonic.TransportEvent, bool) {
	if exType, ok := exceptionType(msg); ok {
		return sonic.TransportEvent{Err: &sonic.StreamError{
			Type:    exType,
			Message: exceptionMessage(msg.Payload),
		}}, true
	}

	var payload chunkPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Bytes == "" {
		return sonic.TransportEvent{}, false
	}
	decoded, err := base64.StdEncoding.DecodeString(payload.Bytes)
	if err != nil {
		return sonic.TransportEvent{}, false
	}
	return sonic.TransportEvent{Chunk: decoded}, true
}

func exceptionType(msg eventstream.Message) (string, bool) {
	if v := headerString(msg, ":message-type"); v == "exception" {
		if et := headerString(msg, ":exception-type"); et != "" {
			return et, true
		}
		return "exception", true
	}
	if v := headerString(msg, ":event-type"); v == "exception" {
		return "exception", true
	}
	return "", false
}

func headerString(msg eventstream.Message, name string) string {
	if v := msg.Headers.Get(name); v != nil {
		if s, ok := v.(eventstream.StringValue); ok {
			return string(s)
		}
	}
	return ""
}

func exceptionMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(payload)
}
