// Package sessionstate stores per-session chat history and the most recent
// upload in the scs session.
//
// Reads and writes are not coordinated across concurrent requests of the same
// session: two overlapping chat turns may each read the same history, and the
// last one to commit wins.
package sessionstate

import (
	"context"
	"encoding/gob"

	"github.com/agjmills/docchat/internal/chat"
	"github.com/agjmills/docchat/internal/ingest"
	"github.com/alexedwards/scs/v2"
)

const (
	historyKey      = "chat_history"
	lastFileKey     = "last_file"
	lastFileTextKey = "last_file_text"
)

func init() {
	// scs gob-encodes session values as interface{}.
	gob.Register([]chat.Turn{})
	gob.Register(ingest.UploadedFile{})
}

// Store is an explicit handle on the session-scoped state.
type Store struct {
	sm *scs.SessionManager
}

func New(sm *scs.SessionManager) *Store {
	return &Store{sm: sm}
}

// History returns the stored chat history, or nil when there is none.
func (s *Store) History(ctx context.Context) []chat.Turn {
	history, _ := s.sm.Get(ctx, historyKey).([]chat.Turn)
	return history
}

func (s *Store) SetHistory(ctx context.Context, history []chat.Turn) {
	if history == nil {
		history = []chat.Turn{}
	}
	s.sm.Put(ctx, historyKey, history)
}

// ResetHistory empties the chat history.
func (s *Store) ResetHistory(ctx context.Context) {
	s.sm.Put(ctx, historyKey, []chat.Turn{})
}

// LastFile returns the most recently uploaded file of this session.
func (s *Store) LastFile(ctx context.Context) (ingest.UploadedFile, bool) {
	file, ok := s.sm.Get(ctx, lastFileKey).(ingest.UploadedFile)
	return file, ok
}

// LastFileText returns the full extracted text of the last upload.
func (s *Store) LastFileText(ctx context.Context) string {
	return s.sm.GetString(ctx, lastFileTextKey)
}

// SetLastFile records an upload and its text as the session's last file.
func (s *Store) SetLastFile(ctx context.Context, file ingest.UploadedFile, text string) {
	s.sm.Put(ctx, lastFileKey, file)
	s.sm.Put(ctx, lastFileTextKey, text)
}
