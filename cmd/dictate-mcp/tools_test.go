package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/remberq/simple-voice-transcribe/internal/db"
	"github.com/remberq/simple-voice-transcribe/internal/ledger"
)

func newTestTools(t *testing.T) *tools {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Now()
	data, err := json.Marshal([]ledger.Job{
		{ID: "c", CreatedAt: now, Status: ledger.StatusFailed, ErrorMessage: ledger.String("HTTP 401")},
		{ID: "b", CreatedAt: now, Status: ledger.StatusCompleted, ResultText: ledger.String("Buy more Coffee")},
		{ID: "a", CreatedAt: now, Status: ledger.StatusCompleted, ResultText: ledger.String("meeting notes")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ledger.HistoryKey, data); err != nil {
		t.Fatalf("put history: %v", err)
	}
	return &tools{kv: store}
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want text", res.Content[0])
	}
	return text.Text, res.IsError
}

func decodeJobs(t *testing.T, text string) []ledger.Job {
	t.Helper()
	var jobs []ledger.Job
	if err := json.Unmarshal([]byte(text), &jobs); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	return jobs
}

func TestListTranscriptions(t *testing.T) {
	tl := newTestTools(t)

	text, isErr := call(t, tl.list, map[string]any{})
	if isErr {
		t.Fatalf("error result: %s", text)
	}
	if jobs := decodeJobs(t, text); len(jobs) != 3 || jobs[0].ID != "c" {
		t.Errorf("jobs = %+v", jobs)
	}

	text, _ = call(t, tl.list, map[string]any{"status": "completed", "limit": 1})
	if jobs := decodeJobs(t, text); len(jobs) != 1 || jobs[0].ID != "b" {
		t.Errorf("filtered jobs = %+v", jobs)
	}
}

func TestGetTranscription(t *testing.T) {
	tl := newTestTools(t)

	text, isErr := call(t, tl.get, map[string]any{"id": "a"})
	if isErr {
		t.Fatalf("error result: %s", text)
	}
	var job ledger.Job
	if err := json.Unmarshal([]byte(text), &job); err != nil {
		t.Fatal(err)
	}
	if job.Result() != "meeting notes" {
		t.Errorf("result = %q", job.Result())
	}

	if _, isErr := call(t, tl.get, map[string]any{"id": "zzz"}); !isErr {
		t.Error("unknown id should be an error result")
	}
	if _, isErr := call(t, tl.get, map[string]any{}); !isErr {
		t.Error("missing id should be an error result")
	}
}

func TestSearchTranscriptions(t *testing.T) {
	tl := newTestTools(t)

	text, _ := call(t, tl.search, map[string]any{"query": "coffee"})
	if jobs := decodeJobs(t, text); len(jobs) != 1 || jobs[0].ID != "b" {
		t.Errorf("jobs = %+v", jobs)
	}

	text, _ = call(t, tl.search, map[string]any{"query": "401"})
	if jobs := decodeJobs(t, text); len(jobs) != 0 {
		t.Errorf("failed jobs should not match: %+v", jobs)
	}
}

func TestHistoryStatus(t *testing.T) {
	tl := newTestTools(t)

	text, isErr := call(t, tl.status, nil)
	if isErr {
		t.Fatalf("error result: %s", text)
	}
	var sum historySummary
	if err := json.Unmarshal([]byte(text), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Jobs != 3 || sum.ByStatus[ledger.StatusCompleted] != 2 || sum.ByStatus[ledger.StatusFailed] != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.UpdatedAt == nil {
		t.Error("updatedAt missing")
	}
}
