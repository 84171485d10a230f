package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/subham2006/mentora/internal/conversation"
)

const historyTurns = 6

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for a short spoken tutor reply and answers with
// the fallback text whenever generation fails or comes back empty.
type Gemini struct {
	models   generator
	model    string
	fallback string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGemini connects a Gemini API client.
func NewGemini(ctx context.Context, apiKey string, model string, fallback string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		models:   client.Models,
		model:    model,
		fallback: fallback,
		timeout:  20 * time.Second,
		logger:   logger,
	}, nil
}

// Reply generates an answer. The returned error is always nil.
func (g *Gemini) Reply(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Transcript) == "" && len(req.Image) == 0 {
		return g.fallback, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model, g.contents(req), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(req.Character), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   256,
	})
	if err != nil {
		g.logWarn("gemini reply failed; using fallback", "error", err.Error())
		return g.fallback, nil
	}

	text := strings.TrimSpace(responseText(resp))
	if text == "" {
		g.logWarn("gemini reply empty; using fallback")
		return g.fallback, nil
	}
	return text, nil
}

func (g *Gemini) contents(req Request) []*genai.Content {
	history := req.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	prompt := strings.TrimSpace(req.Transcript)
	if prompt == "" {
		prompt = "(The student said nothing; look at the whiteboard.)"
	}
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, "image/png"))
	}
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

func systemPrompt(character string) string {
	if character == "" {
		character = "a friendly tutor"
	}
	return fmt.Sprintf(
		"You are %s helping a student who is drawing on a whiteboard. "+
			"Answer in at most three short spoken sentences, encourage the student, "+
			"and refer to the drawing when one is attached. Do not use markdown.",
		character,
	)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func (g *Gemini) logWarn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
