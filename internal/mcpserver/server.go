// Package mcpserver exposes the transcript archive as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwulff/voicenotes/internal/db"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Archive is the subset of the store the tools need.
type Archive interface {
	ListTranscripts(ctx context.Context, page, limit int) (db.Page, error)
	GetTranscript(ctx context.Context, id string) (db.Transcript, error)
	DeleteTranscript(ctx context.Context, id string) error
}

// transcriptJSON is the wire shape of one transcript.
type transcriptJSON struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	DurationSeconds int    `json:"duration_seconds"`
	Language        string `json:"language"`
	CreatedAt       string `json:"created_at"`
}

func toJSON(t db.Transcript) transcriptJSON {
	return transcriptJSON{
		ID:              t.ID,
		Text:            t.Text,
		DurationSeconds: t.DurationSeconds(),
		Language:        t.Language,
		CreatedAt:       t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// New builds an MCP server with the archive tools registered.
func New(archive Archive, version string) *server.MCPServer {
	s := server.NewMCPServer("voicenotes", version, server.WithToolCapabilities(false))
	h := handlers{archive: archive}

	s.AddTool(mcp.NewTool("list_transcripts",
		mcp.WithDescription("List archived meeting transcripts, newest first"),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
		mcp.WithNumber("limit", mcp.Description("Transcripts per page (default 10)")),
	), h.list)

	s.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Get one archived transcript by id"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Transcript id")),
	), h.get)

	s.AddTool(mcp.NewTool("delete_transcript",
		mcp.WithDescription("Delete one archived transcript by id"),
		mcp.WithString("id", mcp.Required(), mcp.Description("Transcript id")),
	), h.delete)

	return s
}

// Serve runs the server over stdio until the client disconnects.
func Serve(archive Archive, version string) error {
	return server.ServeStdio(New(archive, version))
}

type handlers struct {
	archive Archive
}

func (h handlers) list(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := h.archive.ListTranscripts(ctx, req.GetInt("page", 1), req.GetInt("limit", 10))
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	out := struct {
		Transcripts []transcriptJSON `json:"transcripts"`
		Page        int              `json:"page"`
		Limit       int              `json:"limit"`
		Total       int              `json:"total"`
		Pages       int              `json:"pages"`
	}{
		Transcripts: []transcriptJSON{},
		Page:        page.Page,
		Limit:       page.Limit,
		Total:       page.Total,
		Pages:       page.Pages,
	}
	for _, t := range page.Transcripts {
		out.Transcripts = append(out.Transcripts, toJSON(t))
	}
	return jsonResult(out)
}

func (h handlers) get(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := h.archive.GetTranscript(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return mcp.NewToolResultError("transcript not found: " + id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return jsonResult(toJSON(t))
}

func (h handlers) delete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	err = h.archive.DeleteTranscript(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return mcp.NewToolResultError("transcript not found: " + id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete transcript: %w", err)
	}
	return mcp.NewToolResultText("deleted " + id), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
