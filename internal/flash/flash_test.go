package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
)

// roundTrip runs set in one request and returns what get observes in a
// second request carrying the session cookie.
func roundTrip(t *testing.T, sm *scs.SessionManager, set func(r *http.Request)) []*Message {
	t.Helper()

	setHandler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set(r)
	}))
	w := httptest.NewRecorder()
	setHandler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	cookies := w.Result().Cookies()

	var got []*Message
	getHandler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, Get(r.Context(), sm))
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		getHandler.ServeHTTP(rec, req)
	}
	return got
}

func TestSetAndGet(t *testing.T) {
	tests := []struct {
		name        string
		set         func(sm *scs.SessionManager, r *http.Request)
		wantType    string
		wantContent string
	}{
		{
			name:        "error message",
			set:         func(sm *scs.SessionManager, r *http.Request) { Error(r.Context(), sm, "Invalid credentials.") },
			wantType:    "error",
			wantContent: "Invalid credentials.",
		},
		{
			name:        "success message",
			set:         func(sm *scs.SessionManager, r *http.Request) { Success(r.Context(), sm, "Saved") },
			wantType:    "success",
			wantContent: "Saved",
		},
		{
			name:        "info message",
			set:         func(sm *scs.SessionManager, r *http.Request) { Info(r.Context(), sm, "Logged out.") },
			wantType:    "info",
			wantContent: "Logged out.",
		},
		{
			name:        "warning message",
			set:         func(sm *scs.SessionManager, r *http.Request) { Warning(r.Context(), sm, "Careful: colons") },
			wantType:    "warning",
			wantContent: "Careful: colons",
		},
		{
			name:        "empty content",
			set:         func(sm *scs.SessionManager, r *http.Request) { Set(r.Context(), sm, "error", "") },
			wantType:    "error",
			wantContent: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := scs.New()
			got := roundTrip(t, sm, func(r *http.Request) { tt.set(sm, r) })

			if got[0] == nil {
				t.Fatal("expected flash message on first read")
			}
			if got[0].Type != tt.wantType || got[0].Content != tt.wantContent {
				t.Errorf("got %+v, want %s/%q", got[0], tt.wantType, tt.wantContent)
			}
			if got[1] != nil {
				t.Errorf("flash should be cleared after first read, got %+v", got[1])
			}
		})
	}
}

func TestGet_NoMessage(t *testing.T) {
	sm := scs.New()
	got := roundTrip(t, sm, func(r *http.Request) {})
	if got[0] != nil {
		t.Errorf("expected nil, got %+v", got[0])
	}
}

func TestSet_ReplacesPending(t *testing.T) {
	sm := scs.New()
	got := roundTrip(t, sm, func(r *http.Request) {
		Error(r.Context(), sm, "first")
		Info(r.Context(), sm, "second")
	})
	if got[0] == nil || got[0].Content != "second" {
		t.Errorf("got %+v, want second message", got[0])
	}
}

func TestGet_SameRequest(t *testing.T) {
	sm := scs.New()
	var got *Message
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Error(r.Context(), sm, "shown now")
		got = Get(r.Context(), sm)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil))
	if got == nil || got.Content != "shown now" {
		t.Errorf("got %+v", got)
	}
}
