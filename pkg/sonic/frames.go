package sonic

// Event type names shared by outbound frames, inbound routing, and the
// handler registry.
const (
	EventSessionStart   = "sessionStart"
	EventPromptStart    = "promptStart"
	EventContentStart   = "contentStart"
	EventTextInput      = "textInput"
	EventAudioInput     = "audioInput"
	EventToolResult     = "toolResult"
	EventContentEnd     = "contentEnd"
	EventPromptEnd      = "promptEnd"
	EventSessionEnd     = "sessionEnd"
	EventTextOutput     = "textOutput"
	EventAudioOutput    = "audioOutput"
	EventToolUse        = "toolUse"
	EventToolEnd        = "toolEnd"
	EventError          = "error"
	EventStreamComplete = "streamComplete"
	EventUnknown        = "unknown"

	// EventAny registers a handler for every event of a session.
	EventAny = "any"
)

// Frame is one outbound protocol event: a JSON object with a single
// "event" key whose sole child key names the event type.
type Frame struct {
	Event map[string]any `json:"event"`
}

// Type returns the frame's event type name.
func (f Frame) Type() string {
	for k := range f.Event {
		return k
	}
	return ""
}

func newFrame(eventType string, body any) Frame {
	return Frame{Event: map[string]any{eventType: body}}
}

// ToolSpec advertises one tool to the model in promptStart. Schema is a
// JSON Schema document serialized as a string, which is how the protocol
// carries it.
type ToolSpec struct {
	Name        string
	Description string
	Schema      string
}

type sessionStartBody struct {
	InferenceConfiguration InferenceConfig `json:"inferenceConfiguration"`
}

type mediaTypeConfig struct {
	MediaType string `json:"mediaType"`
}

type toolSpecWire struct {
	ToolSpec struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema struct {
			JSON string `json:"json"`
		} `json:"inputSchema"`
	} `json:"toolSpec"`
}

type toolConfigurationBody struct {
	Tools []toolSpecWire `json:"tools"`
}

type promptStartBody struct {
	PromptName                 string                `json:"promptName"`
	TextOutputConfiguration    TextConfig            `json:"textOutputConfiguration"`
	AudioOutputConfiguration   AudioOutputConfig     `json:"audioOutputConfiguration"`
	ToolUseOutputConfiguration mediaTypeConfig       `json:"toolUseOutputConfiguration"`
	ToolConfiguration          toolConfigurationBody `json:"toolConfiguration"`
}

type contentStartTextBody struct {
	PromptName             string     `json:"promptName"`
	ContentName            string     `json:"contentName"`
	Type                   string     `json:"type"`
	Interactive            bool       `json:"interactive"`
	Role                   string     `json:"role"`
	TextInputConfiguration TextConfig `json:"textInputConfiguration"`
}

type contentStartAudioBody struct {
	PromptName              string           `json:"promptName"`
	ContentName             string           `json:"contentName"`
	Type                    string           `json:"type"`
	Interactive             bool             `json:"interactive"`
	Role                    string           `json:"role"`
	AudioInputConfiguration AudioInputConfig `json:"audioInputConfiguration"`
}

type toolResultInputConfiguration struct {
	ToolUseID              string     `json:"toolUseId"`
	Type                   string     `json:"type"`
	TextInputConfiguration TextConfig `json:"textInputConfiguration"`
}

type contentStartToolBody struct {
	PromptName                   string                       `json:"promptName"`
	ContentName                  string                       `json:"contentName"`
	Interactive                  bool                         `json:"interactive"`
	Type                         string                       `json:"type"`
	Role                         string                       `json:"role"`
	ToolResultInputConfiguration toolResultInputConfiguration `json:"toolResultInputConfiguration"`
}

type contentBody struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Content     string `json:"content,omitempty"`
}

type promptEndBody struct {
	PromptName string `json:"promptName"`
}

func sessionStartFrame(infer InferenceConfig) Frame {
	return newFrame(EventSessionStart, sessionStartBody{InferenceConfiguration: infer})
}

func promptStartFrame(promptName string, audioOut AudioOutputConfig, specs []ToolSpec) Frame {
	body := promptStartBody{
		PromptName:                 promptName,
		TextOutputConfiguration:    DefaultTextConfig(),
		AudioOutputConfiguration:   audioOut,
		ToolUseOutputConfiguration: mediaTypeConfig{MediaType: "application/json"},
	}
	body.ToolConfiguration.Tools = make([]toolSpecWire, 0, len(specs))
	for _, s := range specs {
		var w toolSpecWire
		w.ToolSpec.Name = s.Name
		w.ToolSpec.Description = s.Description
		w.ToolSpec.InputSchema.JSON = s.Schema
		body.ToolConfiguration.Tools = append(body.ToolConfiguration.Tools, w)
	}
	return newFrame(EventPromptStart, body)
}

func contentStartTextFrame(promptName, contentName, role string, cfg TextConfig) Frame {
	return newFrame(EventContentStart, contentStartTextBody{
		PromptName:             promptName,
		ContentName:            contentName,
		Type:                   "TEXT",
		Interactive:            true,
		Role:                   role,
		TextInputConfiguration: cfg,
	})
}

func contentStartAudioFrame(promptName, contentName string, cfg AudioInputConfig) Frame {
	return newFrame(EventContentStart, contentStartAudioBody{
		PromptName:              promptName,
		ContentName:             contentName,
		Type:                    "AUDIO",
		Interactive:             true,
		Role:                    "USER",
		AudioInputConfiguration: cfg,
	})
}

func contentStartToolFrame(promptName, contentName, toolUseID string) Frame {
	return newFrame(EventContentStart, contentStartToolBody{
		PromptName:  promptName,
		ContentName: contentName,
		Interactive: false,
		Type:        "TOOL",
		Role:        "TOOL",
		ToolResultInputConfiguration: toolResultInputConfiguration{
			ToolUseID:              toolUseID,
			Type:                   "TEXT",
			TextInputConfiguration: DefaultTextConfig(),
		},
	})
}

func textInputFrame(promptName, contentName, content string) Frame {
	return newFrame(EventTextInput, contentBody{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     content,
	})
}

func audioInputFrame(promptName, contentName, base64Audio string) Frame {
	return newFrame(EventAudioInput, contentBody{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     base64Audio,
	})
}

func toolResultFrame(promptName, contentName, content string) Frame {
	return newFrame(EventToolResult, contentBody{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     content,
	})
}

func contentEndFrame(promptName, contentName string) Frame {
	return newFrame(EventContentEnd, contentBody{
		PromptName:  promptName,
		ContentName: contentName,
	})
}

func promptEndFrame(promptName string) Frame {
	return newFrame(EventPromptEnd, promptEndBody{PromptName: promptName})
}

func sessionEndFrame() Frame {
	return newFrame(EventSessionEnd, struct{}{})
}
