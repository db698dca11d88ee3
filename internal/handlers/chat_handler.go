package handlers

import (
	"net/http"

	"github.com/agjmills/docchat/internal/auth"
	"github.com/agjmills/docchat/internal/chat"
	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/sessionstate"
)

type ChatHandler struct {
	orchestrator *chat.Orchestrator
	state        *sessionstate.Store
}

func NewChatHandler(orchestrator *chat.Orchestrator, state *sessionstate.Store) *ChatHandler {
	return &ChatHandler{
		orchestrator: orchestrator,
		state:        state,
	}
}

// Chat runs one turn for the form fields message and lang and replies with
// {"response": ...}. A failed translation is reported as {"error": ...} with
// 502 and leaves the history untouched.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	message := r.FormValue("message")
	lang := r.FormValue("lang")

	res, err := h.orchestrator.HandleTurn(ctx, h.state.History(ctx), message, lang)
	if err != nil {
		user := auth.GetUser(r)
		logger.Error("chat turn failed", "username", user.Username, "lang", lang, "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	if !res.Prompted {
		h.state.SetHistory(ctx, res.History)
	}
	if res.ModelErr != nil {
		logger.Warn("model call failed", "error", res.ModelErr)
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": res.Reply})
}
