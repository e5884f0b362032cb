package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/remberq/simple-voice-transcribe/internal/db"
	"github.com/remberq/simple-voice-transcribe/internal/ledger"
)

// historyStore is the read side of db.Store.
type historyStore interface {
	ledger.KV
	Entry(key string) (*db.Entry, error)
}

type tools struct {
	kv historyStore
}

func registerTools(s *server.MCPServer, t *tools) {
	s.AddTool(mcp.NewTool("list_transcriptions",
		mcp.WithDescription("List recent dictation jobs, newest first"),
		mcp.WithString("status", mcp.Description("Only jobs with this status (uploading, processing, completed, failed, cancelled)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of jobs to return")),
	), t.list)

	s.AddTool(mcp.NewTool("get_transcription",
		mcp.WithDescription("Get one dictation job by id"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job id")),
	), t.get)

	s.AddTool(mcp.NewTool("search_transcriptions",
		mcp.WithDescription("Find completed dictations whose text contains the query (case-insensitive)"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to search for")),
	), t.search)

	s.AddTool(mcp.NewTool("history_status",
		mcp.WithDescription("Summarize the stored history: job counts per status and when it last changed"),
	), t.status)
}

func (t *tools) list(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := ledger.ReadHistory(t.kv)
	if err != nil {
		return mcp.NewToolResultError("read history: " + err.Error()), nil
	}
	status := ledger.Status(req.GetString("status", ""))
	limit := req.GetInt("limit", ledger.MaxJobs)

	out := make([]ledger.Job, 0, len(jobs))
	for _, j := range jobs {
		if status != "" && j.Status != status {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, j)
	}
	return jsonResult(out)
}

func (t *tools) get(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jobs, err := ledger.ReadHistory(t.kv)
	if err != nil {
		return mcp.NewToolResultError("read history: " + err.Error()), nil
	}
	for _, j := range jobs {
		if j.ID == id {
			return jsonResult(j)
		}
	}
	return mcp.NewToolResultError(ledger.ErrJobNotFound.Error()), nil
}

func (t *tools) search(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jobs, err := ledger.ReadHistory(t.kv)
	if err != nil {
		return mcp.NewToolResultError("read history: " + err.Error()), nil
	}

	q := strings.ToLower(query)
	var out []ledger.Job
	for _, j := range jobs {
		if j.Status == ledger.StatusCompleted && strings.Contains(strings.ToLower(j.Result()), q) {
			out = append(out, j)
		}
	}
	if out == nil {
		out = []ledger.Job{}
	}
	return jsonResult(out)
}

type historySummary struct {
	Jobs      int                   `json:"jobs"`
	ByStatus  map[ledger.Status]int `json:"byStatus"`
	UpdatedAt *time.Time            `json:"updatedAt,omitempty"`
}

func (t *tools) status(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entry, err := t.kv.Entry(ledger.HistoryKey)
	if err != nil {
		return mcp.NewToolResultError("read history: " + err.Error()), nil
	}
	jobs, err := ledger.ReadHistory(t.kv)
	if err != nil {
		return mcp.NewToolResultError("read history: " + err.Error()), nil
	}

	sum := historySummary{Jobs: len(jobs), ByStatus: make(map[ledger.Status]int)}
	for _, j := range jobs {
		sum.ByStatus[j.Status]++
	}
	if entry != nil {
		sum.UpdatedAt = &entry.UpdatedAt
	}
	return jsonResult(sum)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
