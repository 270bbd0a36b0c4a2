// Package mcp exposes read-only note tools over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"notely/internal/analytics"
	"notely/internal/apperr"
	"notely/internal/auth"
	"notely/internal/models"
	"notely/internal/notes"
	"notely/internal/users"
)

type Server struct {
	notes     *notes.Service
	users     *users.Directory
	analytics *analytics.Aggregator
}

func NewMCPServer(n *notes.Service, u *users.Directory, a *analytics.Aggregator) *Server {
	return &Server{notes: n, users: u, analytics: a}
}

// getNotesHandler lists the notes a user can access, created within a time range.
func (s *Server) getNotesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := request.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError("email is required"), nil
	}
	startDateStr, err := request.RequireString("start_date")
	if err != nil {
		return mcp.NewToolResultError("start_date is required"), nil
	}
	endDateStr, err := request.RequireString("end_date")
	if err != nil {
		return mcp.NewToolResultError("end_date is required"), nil
	}

	start, err := time.Parse(time.RFC3339, startDateStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid start_date: %v", err)), nil
	}
	end, err := time.Parse(time.RFC3339, endDateStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid end_date: %v", err)), nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return mcp.NewToolResultError("user not found"), nil
	} else if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("database error: %v", err)), nil
	}

	filter := models.NoteFilter{Since: start, Until: end}
	if tag := request.GetString("tag", ""); tag != "" {
		filter.Tags = []string{tag}
	}
	found, err := s.notes.ListFilteredNotes(ctx, models.ActorOf(user), filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("database error: %v", err)), nil
	}

	if len(found) == 0 {
		return mcp.NewToolResultText("No notes found for this time range."), nil
	}

	var noteStrings []string
	for _, n := range found {
		line := fmt.Sprintf("[%s] %s: %s", n.CreatedAt.Format(time.RFC3339), n.Title, n.Content)
		if n.OwnerID != user.ID {
			line += " (shared)"
		}
		noteStrings = append(noteStrings, line)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Found %d notes:\n%s", len(found), strings.Join(noteStrings, "\n"))), nil
}

type dashboardStats struct {
	MostActiveUsers []models.UserNoteCount `json:"mostActiveUsers"`
	MostUsedTags    []models.TagCount      `json:"mostUsedTags"`
	NotesPerDay     []models.DayCount      `json:"notesPerDay"`
}

// dashboardStatsHandler returns the admin dashboard figures as JSON for the calling admin.
func (s *Server) dashboardStatsHandler(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}

	var stats dashboardStats
	var err error
	if stats.MostActiveUsers, err = s.analytics.MostActiveUsers(ctx, actor); err != nil {
		return mcp.NewToolResultError(apperr.MessageOf(err)), nil
	}
	if stats.MostUsedTags, err = s.analytics.MostUsedTags(ctx, actor); err != nil {
		return mcp.NewToolResultError(apperr.MessageOf(err)), nil
	}
	if stats.NotesPerDay, err = s.analytics.NotesPerDay(ctx, actor); err != nil {
		return mcp.NewToolResultError(apperr.MessageOf(err)), nil
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// Handler returns the streamable HTTP endpoint. The caller's actor is carried
// from the HTTP request into tool calls.
func (s *Server) Handler() *server.StreamableHTTPServer {
	mcpServer := server.NewMCPServer("Notely", "1.0.0")

	getNotes := mcp.NewTool("get_notes",
		mcp.WithDescription("Retrieve the notes a user owns or has been shared, created within a time range."),
		mcp.WithString("email", mcp.Required(), mcp.Description("Email of the user to fetch notes for")),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("Start of the time range (RFC3339), e.g. 2023-01-01T00:00:00Z")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("End of the time range (RFC3339), e.g. 2023-12-31T23:59:59Z")),
		mcp.WithString("tag", mcp.Description("Only return notes carrying this tag")),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
	stats := mcp.NewTool("dashboard_stats",
		mcp.WithDescription("Most active users, most used tags and notes created per day over the last week."),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	mcpServer.AddTool(getNotes, s.getNotesHandler)
	mcpServer.AddTool(stats, s.dashboardStatsHandler)

	return server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if actor, ok := auth.ActorFromContext(r.Context()); ok {
				return auth.WithActor(ctx, actor)
			}
			return ctx
		}),
	)
}
