package kb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
)

type fakeRetriever struct {
	results []Result
	err     error

	query      string
	maxResults int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, maxResults int) ([]Result, error) {
	f.query = query
	f.maxResults = maxResults
	return f.results, f.err
}

func toolInput(content string) sonic.ToolInput {
	return sonic.ToolInput{ToolUseID: "tu-1", Content: content}
}

func TestHealthInfoQueriesRetriever(t *testing.T) {
	t.Parallel()

	f := &fakeRetriever{results: []Result{{Content: "passage", Score: 0.8}}}
	got, err := HealthInfo{Retriever: f}.Execute(context.Background(), toolInput(`{"query":"flu symptoms","maxResults":7}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.query != "flu symptoms" || f.maxResults != 7 {
		t.Fatalf("retriever called with %q/%d", f.query, f.maxResults)
	}
	results := got.(map[string]any)["results"].([]Result)
	if len(results) != 1 || results[0].Content != "passage" {
		t.Fatalf("results %v", results)
	}
}

func TestHealthInfoDefaultsMaxResults(t *testing.T) {
	t.Parallel()

	f := &fakeRetriever{}
	if _, err := (HealthInfo{Retriever: f}).Execute(context.Background(), toolInput(`{"query":"checkups"}`)); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.maxResults != DefaultToolResults {
		t.Fatalf("maxResults %d, want %d", f.maxResults, DefaultToolResults)
	}
}

func TestHealthInfoEmptyQuerySkipsLookup(t *testing.T) {
	t.Parallel()

	f := &fakeRetriever{}
	got, err := HealthInfo{Retriever: f}.Execute(context.Background(), toolInput(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if f.query != "" {
		t.Fatal("retriever should not have been called")
	}
	if results := got.(map[string]any)["results"].([]Result); len(results) != 0 {
		t.Fatalf("results %v", results)
	}
}

func TestHealthInfoFoldsLookupFailures(t *testing.T) {
	t.Parallel()

	f := &fakeRetriever{err: errors.New("throttled")}
	got, err := HealthInfo{Retriever: f, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}.Execute(
		context.Background(), toolInput(`{"query":"bp"}`))
	if err != nil {
		t.Fatalf("lookup failure should not surface as error: %v", err)
	}
	if results := got.(map[string]any)["results"].([]Result); len(results) != 0 {
		t.Fatalf("results %v", results)
	}
}
