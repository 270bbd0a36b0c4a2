package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"notely/internal/apperr"
	"notely/internal/models"
)

// NoteAnalyzer answers a question about a set of notes, continuing a chat history.
type NoteAnalyzer interface {
	Analyze(ctx context.Context, notes []models.Note, question string, history []models.ChatMessage) (string, error)
}

// GeminiAnalyzer implements NoteAnalyzer with the Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, model string, log zerolog.Logger) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model, log: log.With().Str("component", "assistant").Logger()}, nil
}

// systemInstruction lists the notes the model may draw on.
func systemInstruction(notes []models.Note) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant answering questions about a user's notes. ")
	b.WriteString("Only use the notes below. Some are shared with the user by others.\n\n")
	for _, n := range notes {
		fmt.Fprintf(&b, "--- %s (%s", n.Title, n.CreatedAt.Format(time.RFC1123))
		if len(n.Tags) > 0 {
			fmt.Fprintf(&b, ", tags: %s", strings.Join(n.Tags, ", "))
		}
		if n.IsArchived {
			b.WriteString(", archived")
		}
		fmt.Fprintf(&b, ") ---\n%s\n\n", n.Content)
	}
	return b.String()
}

func chatHistory(history []models.ChatMessage) []*genai.Content {
	var out []*genai.Content
	for _, msg := range history {
		role := "user"
		if msg.Role == "model" {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return out
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, notes []models.Note, question string, history []models.ChatMessage) (string, error) {
	g.log.Debug().Int("notes", len(notes)).Int("history", len(history)).Msg("asking gemini")

	chat, err := g.client.Chats.Create(ctx, g.model, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction(notes)}},
		},
	}, chatHistory(history))
	if err != nil {
		return "", fmt.Errorf("failed to create chat session: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: question})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}
	if text := resp.Candidates[0].Content.Parts[0].Text; text != "" {
		return text, nil
	}
	return "", fmt.Errorf("empty response from Gemini")
}

type askRequest struct {
	Question string               `json:"question"`
	History  []models.ChatMessage `json:"history"`
	Tags     []string             `json:"tags"`
	Archived *bool                `json:"isArchived"`
}

// handleAsk answers a question over the caller's accessible notes.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in askRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(in.Question) == "" {
		writeError(w, r, apperr.Validation("Question is required"))
		return
	}

	notes, err := s.Notes.ListFilteredNotes(r.Context(), actor, models.NoteFilter{Tags: in.Tags, IsArchived: in.Archived})
	if err != nil {
		writeError(w, r, err)
		return
	}

	answer, err := s.Analyzer.Analyze(r.Context(), notes, in.Question, in.History)
	if err != nil {
		writeError(w, r, apperr.Internal("asking assistant", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
