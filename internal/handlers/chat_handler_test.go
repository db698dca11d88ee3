package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/agjmills/docchat/internal/chat"
)

func TestChat(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		lang        string
		modelErr    error
		translErr   error
		status      int
		response    string
		errorMsg    string
		wantHistory int
	}{
		{
			name:        "default language",
			message:     "hello",
			lang:        "en",
			status:      http.StatusOK,
			response:    "echo: hello",
			wantHistory: 2,
		},
		{
			name:        "translated both ways",
			message:     "bonjour",
			lang:        "fr",
			status:      http.StatusOK,
			response:    "[fr] echo: [en] bonjour",
			wantHistory: 2,
		},
		{
			name:        "blank message",
			message:     "   ",
			lang:        "en",
			status:      http.StatusOK,
			response:    chat.EmptyMessagePrompt,
			wantHistory: 0,
		},
		{
			name:        "model error becomes reply",
			message:     "hello",
			lang:        "en",
			modelErr:    errors.New("quota exceeded"),
			status:      http.StatusOK,
			response:    "[Gemini AI Error: quota exceeded]",
			wantHistory: 2,
		},
		{
			name:        "translation failure",
			message:     "hallo",
			lang:        "de",
			translErr:   errors.New("translator down"),
			status:      http.StatusBadGateway,
			errorMsg:    "translator down",
			wantHistory: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.model.err = tt.modelErr
			env.translator.err = tt.translErr
			h := NewChatHandler(env.orchestrator(), env.state)

			form := url.Values{"message": {tt.message}, "lang": {tt.lang}}
			rec := env.serve(h.Chat, formRequest(http.MethodPost, "/chat", form), true)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}

			body := decodeJSON(t, rec)
			if tt.errorMsg != "" {
				if msg, _ := body["error"].(string); msg == "" || !strings.Contains(msg, tt.errorMsg) {
					t.Errorf("error = %v, want it to mention %q", body["error"], tt.errorMsg)
				}
			} else if body["response"] != tt.response {
				t.Errorf("response = %v, want %q", body["response"], tt.response)
			}

			var history []chat.Turn
			env.inSession(func(ctx context.Context) {
				history = env.state.History(ctx)
			})
			if len(history) != tt.wantHistory {
				t.Errorf("stored %d turns, want %d", len(history), tt.wantHistory)
			}
			if tt.wantHistory > 0 && history[0].Content != tt.message {
				t.Errorf("stored user turn = %q, want original message", history[0].Content)
			}
		})
	}
}

func TestChat_HistoryAccumulatesAcrossRequests(t *testing.T) {
	env := newTestEnv(t)
	h := NewChatHandler(env.orchestrator(), env.state)

	for _, msg := range []string{"one", "two", "three"} {
		form := url.Values{"message": {msg}, "lang": {"en"}}
		if rec := env.serve(h.Chat, formRequest(http.MethodPost, "/chat", form), true); rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", msg, rec.Code)
		}
	}

	var history []chat.Turn
	env.inSession(func(ctx context.Context) {
		history = env.state.History(ctx)
	})
	if len(history) != 6 {
		t.Fatalf("stored %d turns, want 6", len(history))
	}
	if history[4].Content != "three" || history[5].Content != "echo: three" {
		t.Errorf("last turn = %+v", history[4:])
	}
}
