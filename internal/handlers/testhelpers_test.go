package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agjmills/docchat/internal/auth"
	"github.com/agjmills/docchat/internal/chat"
	"github.com/agjmills/docchat/internal/database/models"
	"github.com/agjmills/docchat/internal/extract"
	"github.com/agjmills/docchat/internal/ingest"
	"github.com/agjmills/docchat/internal/sessionstate"
	"github.com/agjmills/docchat/internal/storage"
	"github.com/agjmills/docchat/internal/users"
	"github.com/agjmills/docchat/web"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	if err := LoadTemplates(web.FS); err != nil {
		panic(err)
	}
}

type fakeModel struct {
	reply string
	err   error
}

func (m *fakeModel) Reply(ctx context.Context, history []chat.Turn, message string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.reply != "" {
		return m.reply, nil
	}
	return "echo: " + message, nil
}

type fakeTranslator struct {
	err error
}

func (f *fakeTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("[%s] %s", target, text), nil
}

// testEnv holds one user's session and the services behind the handlers.
type testEnv struct {
	t          *testing.T
	users      *users.Store
	user       *users.User
	sm         *scs.SessionManager
	state      *sessionstate.Store
	files      *ingest.Service
	backend    *storage.MemoryBackend
	model      *fakeModel
	translator *fakeTranslator
	cookies    []*http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := users.Open(filepath.Join(t.TempDir(), "users.json"), func(p string) (string, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.MinCost)
		return string(h), err
	})
	if err != nil {
		t.Fatalf("Failed to open users: %v", err)
	}
	user, err := store.FindByUsername(users.SeedUsername)
	if err != nil {
		t.Fatalf("Seed user missing: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Document{}); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	image := extract.ExtractorFunc(func(ctx context.Context, r io.Reader) extract.Result {
		return extract.Result{Kind: extract.KindImage, Err: errors.New("no OCR engine in tests")}
	})
	backend := storage.NewMemoryBackend()
	sm := scs.New()

	return &testEnv{
		t:          t,
		users:      store,
		user:       user,
		sm:         sm,
		state:      sessionstate.New(sm),
		files:      ingest.NewService(backend, db, extract.NewRegistry(image), ingest.DefaultPreviewLimit),
		backend:    backend,
		model:      &fakeModel{},
		translator: &fakeTranslator{},
	}
}

func (e *testEnv) orchestrator() *chat.Orchestrator {
	return chat.NewOrchestrator(e.model, e.translator, "en", chat.DefaultHistoryLimit)
}

// serve runs h inside the session middleware, carrying the session cookie
// between calls. asUser places the test user in the request context the way
// RequireAuth does.
func (e *testEnv) serve(h http.HandlerFunc, req *http.Request, asUser bool) *httptest.ResponseRecorder {
	e.t.Helper()
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	if asUser {
		req = req.WithContext(context.WithValue(req.Context(), auth.UserContextKey, e.user))
	}
	rec := httptest.NewRecorder()
	e.sm.LoadAndSave(h).ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		e.cookies = cookies
	}
	return rec
}

// inSession runs fn with the current session loaded, for inspecting or
// seeding session state.
func (e *testEnv) inSession(fn func(ctx context.Context)) {
	e.t.Helper()
	e.serve(func(w http.ResponseWriter, r *http.Request) { fn(r.Context()) }, httptest.NewRequest(http.MethodGet, "/", nil), false)
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// multipartRequest builds a POST /upload body with one part per field.
func multipartRequest(t *testing.T, fieldName, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fieldName != "" {
		part, err := mw.CreateFormFile(fieldName, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write([]byte(content))
	}
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("WriteField: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(method, target string, fields url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
