package gateway

import (
	"encoding/json"
	"fmt"
)

// Client control message types accepted on /live.
const (
	msgPromptStart  = "promptStart"
	msgSystemPrompt = "systemPrompt"
	msgAudioStart   = "audioStart"
	msgAudioInput   = "audioInput"
	msgAudioStop    = "audioStop"
	msgClose        = "close"
)

type clientMessage struct {
	Type string `json:"type"`
	// Text carries the system prompt for systemPrompt messages.
	Text string `json:"text,omitempty"`
	// Audio carries one base64 PCM chunk for audioInput messages.
	Audio string `json:"audio,omitempty"`
}

func decodeClientMessage(raw []byte) (clientMessage, error) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return clientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	if msg.Type == "" {
		return clientMessage{}, fmt.Errorf("client message missing type")
	}
	return msg, nil
}

// serverFrame is one JSON frame written back to the caller: the ready
// handshake, a forwarded session event, or an in-band error.
type serverFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func encodeServerFrame(f serverFrame) []byte {
	out, err := json.Marshal(f)
	if err != nil {
		out, _ = json.Marshal(serverFrame{Type: "error", Data: map[string]any{
			"message": "failed to encode event",
		}})
	}
	return out
}
