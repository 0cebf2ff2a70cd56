package tools

import (
	"context"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
)

const greetingSchema = `{
  "type": "object",
  "properties": {
    "greeting_type": {
      "type": "string",
      "description": "The type of greeting to provide (initial, returning_user, help_offer)",
      "enum": ["initial", "returning_user", "help_offer"]
    },
    "user_name": {
      "type": "string",
      "description": "User's name if available (optional)"
    }
  },
  "required": ["greeting_type"]
}`

const fallbackGreeting = "Hello! I'm Ada, your Health Guide Assistant. How can I help you today?"

var greetingCapabilities = []string{
	"Information about common health conditions",
	"Preventive care recommendations",
	"Appointment scheduling guidance",
}

// Greeting produces the assistant's opening lines. The model calls it at
// the start of a conversation and after long pauses.
type Greeting struct{}

func (Greeting) Name() string { return "greeting" }

func (Greeting) Spec() sonic.ToolSpec {
	return sonic.ToolSpec{
		Name:        "greeting",
		Description: "Provides a friendly greeting and introduces the assistant's capabilities",
		Schema:      greetingSchema,
	}
}

func (Greeting) Execute(ctx context.Context, input sonic.ToolInput) (any, error) {
	var args struct {
		GreetingType string `json:"greeting_type"`
		UserName     string `json:"user_name"`
	}
	if err := ParseArgs(input, &args); err != nil {
		return map[string]any{"greeting": fallbackGreeting, "error": err.Error()}, nil
	}

	var greeting string
	switch args.GreetingType {
	case "initial":
		greeting = "Hello! I'm Ada, your Health Guide Assistant. I can help you with information about common health conditions, preventive care recommendations, and appointment scheduling. How can I assist you today?"
	case "returning_user":
		greeting = "Welcome back! How can I assist you with health information today?"
		if args.UserName != "" {
			greeting = "Welcome back, " + args.UserName + "! How can I assist you with health information today?"
		}
	case "help_offer":
		greeting = "I notice you might need some help. I can provide information about common health conditions, preventive care, or help with scheduling appointments. What would you like to know about?"
	default:
		greeting = fallbackGreeting
	}

	return map[string]any{
		"greeting":     greeting,
		"capabilities": greetingCapabilities,
	}, nil
}
