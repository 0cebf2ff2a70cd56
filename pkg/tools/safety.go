package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
)

const safetySchema = `{
  "type": "object",
  "properties": {
    "topic": {
      "type": "string",
      "description": "The topic that is outside the assistant's knowledge domain"
    },
    "request_type": {
      "type": "string",
      "description": "The type of request that cannot be fulfilled",
      "enum": ["medical_advice", "diagnosis", "treatment", "prescription", "emergency", "personal_info", "off_topic", "non_health", "harmful", "illegal", "other"]
    },
    "suggested_action": {
      "type": "string",
      "description": "Suggested action for the user",
      "enum": ["consult_doctor", "call_emergency", "redirect", "clarify", "refuse", "none"]
    },
    "category": {
      "type": "string",
      "description": "The category of off-topic content (if request_type is off_topic or non_health)",
      "enum": ["entertainment", "sports", "politics", "news", "technology", "finance", "travel", "food", "other"]
    }
  },
  "required": ["topic", "request_type"]
}`

var appropriateTopics = []string{
	"Common health conditions and symptoms",
	"Preventive care recommendations",
	"General appointment scheduling guidance",
}

// Safety builds the refusal the model voices when a request falls
// outside the assistant's health-guidance remit.
type Safety struct{}

func (Safety) Name() string { return "safety_response" }

func (Safety) Spec() sonic.ToolSpec {
	return sonic.ToolSpec{
		Name:        "safety_response",
		Description: "Provides a safe redirection when a request is outside the assistant's health information domain",
		Schema:      safetySchema,
	}
}

func (Safety) Execute(ctx context.Context, input sonic.ToolInput) (any, error) {
	var args struct {
		Topic           string `json:"topic"`
		RequestType     string `json:"request_type"`
		SuggestedAction string `json:"suggested_action"`
		Category        string `json:"category"`
	}
	if err := ParseArgs(input, &args); err != nil {
		return map[string]any{
			"response": "I'm unable to provide information on this topic. I can only help with general health information about common conditions, preventive care, and appointment scheduling.",
			"error":    err.Error(),
		}, nil
	}
	if args.Topic == "" {
		args.Topic = "this topic"
	}
	if args.RequestType == "" {
		args.RequestType = "other"
	}

	var response, alternative string
	switch args.RequestType {
	case "medical_advice", "diagnosis", "treatment":
		response = fmt.Sprintf("I'm not able to provide specific %s about %s. As an AI assistant, I can only offer general health information, not personalized medical advice.",
			strings.ReplaceAll(args.RequestType, "_", " "), args.Topic)
		alternative = "For personalized medical guidance, please consult with a qualified healthcare provider."
	case "prescription":
		response = fmt.Sprintf("I cannot provide prescriptions or medication recommendations for %s or any condition. Only licensed healthcare professionals can prescribe medications.", args.Topic)
		alternative = "Please speak with your doctor about medication options for your condition."
	case "emergency":
		response = "This sounds like it could be a medical emergency. I'm not equipped to help with emergency situations."
		alternative = "Please contact emergency services (911) immediately or go to your nearest emergency room."
	case "personal_info":
		response = fmt.Sprintf("I'm not able to access, store, or process personal health information about %s or other medical records.", args.Topic)
		alternative = "For access to your medical records, please contact your healthcare provider directly."
	case "off_topic", "non_health":
		categoryText := ""
		if args.Category != "" {
			categoryText = " about " + args.Category
		}
		response = fmt.Sprintf("I'm specifically designed to discuss health-related topics only, so I can't assist with questions%s about %s.", categoryText, args.Topic)
		alternative = "If you have questions about common health conditions, preventive care, or appointment scheduling, I'd be happy to help with those."
	case "harmful":
		response = fmt.Sprintf("I cannot provide information on %s as it could potentially be harmful.", args.Topic)
		alternative = "I'm designed to provide helpful health information that promotes wellbeing. Let me know if you have health-related questions I can assist with."
	case "illegal":
		response = fmt.Sprintf("I cannot provide information or assistance regarding %s as it may be related to illegal activities.", args.Topic)
		alternative = "I'm programmed to provide health information within legal and ethical boundaries. I'd be happy to help with legitimate health questions."
	default:
		response = fmt.Sprintf("I'm not able to provide information about %s as it's outside my knowledge domain.", args.Topic)
		alternative = "I can help with information about common health conditions, preventive care, and appointment scheduling instead."
	}

	category := args.Category
	if category == "" {
		category = "N/A"
	}
	return map[string]any{
		"response":               response,
		"alternative_suggestion": alternative,
		"appropriate_topics":     appropriateTopics,
		"request_details": map[string]any{
			"type":     args.RequestType,
			"topic":    args.Topic,
			"category": category,
		},
	}, nil
}
