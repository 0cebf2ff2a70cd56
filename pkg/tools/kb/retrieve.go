package kb

import (
	"context"
	"log/slog"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
	"github.com/voxbridge-ai/voxbridge/pkg/tools"
)

const retrieveSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "Use this tool only if the user question is about health conditions, preventive care, or appointment scheduling. This tool allows you to use use your knowledge base to search for such topic."
    }
  },
  "required": ["query"]
}`

// DefaultToolResults is how many passages the tool returns when the
// model does not ask for a count.
const DefaultToolResults = 3

// HealthInfo is the retrieve_health_info executor. Lookup failures are
// reported in-band as empty results so the conversation keeps going.
type HealthInfo struct {
	Retriever Retriever
	Logger    *slog.Logger
}

func (HealthInfo) Name() string { return "retrieve_health_info" }

func (HealthInfo) Spec() sonic.ToolSpec {
	return sonic.ToolSpec{
		Name:        "retrieve_health_info",
		Description: "Use this tool only to retrieve information about health conditions, preventive care, and appointment scheduling from the knowledge base.",
		Schema:      retrieveSchema,
	}
}

func (t HealthInfo) Execute(ctx context.Context, input sonic.ToolInput) (any, error) {
	var args struct {
		Query      string `json:"query"`
		MaxResults int    `json:"maxResults"`
	}
	if err := tools.ParseArgs(input, &args); err != nil {
		return nil, err
	}
	if args.Query == "" {
		return map[string]any{"results": []Result{}}, nil
	}
	if args.MaxResults <= 0 {
		args.MaxResults = DefaultToolResults
	}

	results, err := t.Retriever.Retrieve(ctx, args.Query, args.MaxResults)
	if err != nil {
		if t.Logger != nil {
			t.Logger.Error("knowledge base lookup failed", "query", args.Query, "error", err)
		}
		return map[string]any{"results": []Result{}}, nil
	}
	return map[string]any{"results": results}, nil
}
