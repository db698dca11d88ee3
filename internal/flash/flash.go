// Package flash stores one-shot messages in the session for display on the
// next rendered page.
package flash

import (
	"context"
	"encoding/gob"

	"github.com/alexedwards/scs/v2"
)

const sessionKey = "flash"

type Message struct {
	Type    string // "error", "success", "info", "warning"
	Content string
}

func init() {
	gob.Register(Message{})
}

// Set stores a flash message, replacing any message not yet shown.
func Set(ctx context.Context, sm *scs.SessionManager, msgType, content string) {
	sm.Put(ctx, sessionKey, Message{Type: msgType, Content: content})
}

// Get retrieves and clears the flash message
func Get(ctx context.Context, sm *scs.SessionManager) *Message {
	msg, ok := sm.Pop(ctx, sessionKey).(Message)
	if !ok {
		return nil
	}
	return &msg
}

func Error(ctx context.Context, sm *scs.SessionManager, content string) {
	Set(ctx, sm, "error", content)
}

func Success(ctx context.Context, sm *scs.SessionManager, content string) {
	Set(ctx, sm, "success", content)
}

func Info(ctx context.Context, sm *scs.SessionManager, content string) {
	Set(ctx, sm, "info", content)
}

func Warning(ctx context.Context, sm *scs.SessionManager, content string) {
	Set(ctx, sm, "warning", content)
}
