// Package llm adapts Google's Gemini API to the chat Model and Translator
// interfaces.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agjmills/docchat/internal/chat"
	"github.com/agjmills/docchat/internal/metrics"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-pro"

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Gemini is a chat.Model and chat.Translator backed by one API client.
type Gemini struct {
	client    *genai.Client
	modelName string
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Gemini{client: cl, modelName: modelName}, nil
}

func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Reply replays history into a new chat session and sends message. The
// session is discarded afterwards.
func (g *Gemini) Reply(ctx context.Context, history []chat.Turn, message string) (string, error) {
	start := time.Now()
	cs := g.client.GenerativeModel(g.modelName).StartChat()
	cs.History = toContents(history)

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err == nil {
		var text string
		if text, err = responseText(resp); err == nil {
			metrics.RecordModelRequest("chat", true, time.Since(start))
			return text, nil
		}
	}
	metrics.RecordModelRequest("chat", false, time.Since(start))
	return "", err
}

// Translate asks the model for a plain translation of text into targetLang.
func (g *Gemini) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	start := time.Now()
	m := g.client.GenerativeModel(g.modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(translationInstruction(targetLang))},
	}
	var temperature float32 = 0
	m.Temperature = &temperature

	resp, err := m.GenerateContent(ctx, genai.Text(text))
	if err == nil {
		var out string
		if out, err = responseText(resp); err == nil {
			metrics.RecordModelRequest("translate", true, time.Since(start))
			return strings.TrimSpace(out), nil
		}
	}
	metrics.RecordModelRequest("translate", false, time.Since(start))
	return "", fmt.Errorf("gemini translate: %w", err)
}

func translationInstruction(targetLang string) string {
	return fmt.Sprintf("Translate the user's text into the language with ISO 639-1 code %q. "+
		"Reply with the translation only, without quotes, notes or explanations. "+
		"If the text is already in that language, return it unchanged.", targetLang)
}

// toContents maps chat turns to Gemini contents. Gemini calls the assistant
// role "model"; entries with other roles are skipped.
func toContents(history []chat.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		var role string
		switch turn.Role {
		case chat.RoleUser:
			role = "user"
		case chat.RoleAssistant:
			role = "model"
		default:
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return contents
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

var (
	_ chat.Model      = (*Gemini)(nil)
	_ chat.Translator = (*Gemini)(nil)
)
