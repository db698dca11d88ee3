// Package chat runs one conversational turn against a generative model, with
// optional translation in and out of the model's working language.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/metrics"
)

// EmptyMessagePrompt is returned for a blank message. No history is changed.
const EmptyMessagePrompt = "Please enter a message."

// DefaultHistoryLimit is the number of prior entries sent to the model.
const DefaultHistoryLimit = 8

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Model produces a reply from the prior turns and a new message. Each call is
// independent; no conversation state is kept between calls.
type Model interface {
	Reply(ctx context.Context, history []Turn, message string) (string, error)
}

// Translator translates text into the target language code.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// TurnResult is the outcome of HandleTurn. History is what should be stored
// for the session; it is nil when Prompted is set.
type TurnResult struct {
	Reply    string
	History  []Turn
	Prompted bool  // message was blank, nothing was sent
	ModelErr error // model failure that was turned into the reply
}

// Orchestrator handles chat turns.
type Orchestrator struct {
	model        Model
	translator   Translator
	defaultLang  string
	historyLimit int
}

func NewOrchestrator(model Model, translator Translator, defaultLang string, historyLimit int) *Orchestrator {
	if defaultLang == "" {
		defaultLang = "en"
	}
	if historyLimit < 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Orchestrator{
		model:        model,
		translator:   translator,
		defaultLang:  strings.ToLower(defaultLang),
		historyLimit: historyLimit,
	}
}

// HandleTurn answers message given the stored history. Stored history is
// trimmed to the most recent entries before use, so what is persisted after a
// turn may exceed the limit by one turn until the next call trims it.
//
// Model failures become a labelled reply. Translation failures are returned.
func (o *Orchestrator) HandleTurn(ctx context.Context, history []Turn, message, lang string) (TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		metrics.RecordChatTurn("prompted")
		return TurnResult{Reply: EmptyMessagePrompt, Prompted: true}, nil
	}

	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = o.defaultLang
	}
	translate := lang != o.defaultLang

	prior := Recent(history, o.historyLimit)

	query := message
	if translate {
		t, err := o.translator.Translate(ctx, message, o.defaultLang)
		if err != nil {
			metrics.RecordChatTurn("translation_error")
			return TurnResult{}, fmt.Errorf("failed to translate message to %s: %w", o.defaultLang, err)
		}
		query = t
	}

	result := TurnResult{}
	reply, err := o.model.Reply(ctx, prior, query)
	if err != nil {
		logger.Warn("model request failed", "error", err)
		result.ModelErr = err
		reply = fmt.Sprintf("[Gemini AI Error: %v]", err)
	}

	if translate {
		t, err := o.translator.Translate(ctx, reply, lang)
		if err != nil {
			metrics.RecordChatTurn("translation_error")
			return TurnResult{}, fmt.Errorf("failed to translate reply to %s: %w", lang, err)
		}
		reply = t
	}

	next := make([]Turn, 0, len(prior)+2)
	next = append(next, prior...)
	next = append(next,
		Turn{Role: RoleUser, Content: message},
		Turn{Role: RoleAssistant, Content: reply},
	)

	result.Reply = reply
	result.History = next
	if result.ModelErr != nil {
		metrics.RecordChatTurn("model_error")
	} else {
		metrics.RecordChatTurn("ok")
	}
	return result, nil
}

// Recent returns a copy of the last limit entries of history.
func Recent(history []Turn, limit int) []Turn {
	if limit < 0 {
		limit = 0
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]Turn, len(history))
	copy(out, history)
	return out
}
