package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"

	"github.com/agjmills/docchat/internal/auth"
	"github.com/agjmills/docchat/internal/ingest"
	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/sessionstate"
	"github.com/go-chi/chi/v5"
)

// UploadHandler accepts uploads into the user's storage and serves them back.
type UploadHandler struct {
	files         *ingest.Service
	state         *sessionstate.Store
	maxUploadSize int64
}

func NewUploadHandler(files *ingest.Service, state *sessionstate.Store, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{
		files:         files,
		state:         state,
		maxUploadSize: maxUploadSize,
	}
}

// uploadErrorMessages maps validation failures to the text shown to the user.
var uploadErrorMessages = map[error]string{
	ingest.ErrNoFile:         "No file part",
	ingest.ErrNoSelectedFile: "No selected file",
	ingest.ErrTypeNotAllowed: "File type not allowed",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Upload streams the first "file" part of a multipart body straight into
// storage. Parts other than "file" are skipped.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r)
	tooLarge := fmt.Sprintf("File too large (max %d MB)", h.maxUploadSize/(1024*1024))

	if r.ContentLength > h.maxUploadSize {
		logger.Info("upload rejected", "reason", "content length", "size", r.ContentLength, "limit", h.maxUploadSize)
		writeJSONError(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	part, err := firstFilePart(r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			writeJSONError(w, http.StatusRequestEntityTooLarge, tooLarge)
		case errors.Is(err, ingest.ErrNoFile):
			writeJSONError(w, http.StatusBadRequest, uploadErrorMessages[ingest.ErrNoFile])
		default:
			writeJSONError(w, http.StatusBadRequest, "Failed to parse multipart form")
		}
		return
	}
	defer part.Close()

	res, err := h.files.Accept(r.Context(), user.Username, part.FileName(), part)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		for target, msg := range uploadErrorMessages {
			if errors.Is(err, target) {
				writeJSONError(w, http.StatusBadRequest, msg)
				return
			}
		}
		logger.Error("upload failed", "username", user.Username, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	h.state.SetLastFile(r.Context(), res.File, res.FullText)
	if res.Extraction.Failed() {
		logger.Warn("upload stored with extraction error",
			"username", user.Username,
			"filename", res.Filename,
			"error", res.Extraction.Err,
		)
	}

	writeJSON(w, http.StatusOK, res)
}

// firstFilePart advances the multipart reader to the first part named "file".
// It returns ingest.ErrNoFile when the body is not multipart or has no such part.
func firstFilePart(r *http.Request) (*multipart.Part, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return nil, ingest.ErrNoFile
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, ingest.ErrNoFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		io.Copy(io.Discard, part)
		part.Close()
	}
}

// ServeUpload streams one of the current user's stored files. Other users'
// directories are not reachable.
func (h *UploadHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r)
	username := chi.URLParam(r, "username")
	filename := chi.URLParam(r, "filename")

	if username != user.Username {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	reader, info, err := h.files.Open(r.Context(), username, filename)
	if errors.Is(err, ingest.ErrNotFound) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("failed to open upload", "username", username, "filename", filename, "error", err)
		http.Error(w, "Failed to open file", http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))

	if _, err := io.Copy(w, reader); err != nil {
		logger.Warn("error streaming file", "filename", filename, "error", err)
	}
}
