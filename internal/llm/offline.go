package llm

import (
	"context"
	"errors"

	"github.com/agjmills/docchat/internal/chat"
)

// ErrNotConfigured is returned by Offline when no API key was provided.
var ErrNotConfigured = errors.New("GEMINI_API_KEY is not configured")

// Offline stands in for Gemini when no API key is set. Replies fail, so users
// see a labelled error, and translation returns the input unchanged.
type Offline struct{}

func (Offline) Reply(ctx context.Context, history []chat.Turn, message string) (string, error) {
	return "", ErrNotConfigured
}

func (Offline) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return text, nil
}

var (
	_ chat.Model      = Offline{}
	_ chat.Translator = Offline{}
)
