// Package ingest accepts uploaded files into per-user storage and records the
// text extracted from them.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agjmills/docchat/internal/database/models"
	"github.com/agjmills/docchat/internal/extract"
	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/metrics"
	"github.com/agjmills/docchat/internal/storage"
	"github.com/maruel/natural"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNoFile         = errors.New("no file part")
	ErrNoSelectedFile = errors.New("no selected file")
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrNotFound       = errors.New("file not found")
)

// DefaultPreviewLimit is the number of characters returned as an upload preview.
const DefaultPreviewLimit = 300

// CannotDisplay is shown for files whose type has no text view.
const CannotDisplay = "[Cannot display file content]"

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true,
	"pdf": true, "docx": true, "txt": true,
}

// AllowedFile reports whether the extension after the last '.' is accepted.
func AllowedFile(name string) bool {
	return strings.Contains(name, ".") && allowedExtensions[extension(name)]
}

// UploadedFile references a stored upload. It is kept in the session as the
// most recent file.
type UploadedFile struct {
	Filename    string
	StoragePath string
	URL         string
	Type        string // file extension
}

// UploadResult is the JSON body returned for an accepted upload. Images carry
// OCR, text documents carry Summary; other kinds carry neither.
type UploadResult struct {
	Filename string  `json:"filename"`
	URL      string  `json:"url"`
	Type     string  `json:"type"`
	OCR      *string `json:"ocr,omitempty"`
	Summary  *string `json:"summary,omitempty"`

	File       UploadedFile   `json:"-"`
	Size       int64          `json:"-"`
	Extraction extract.Result `json:"-"`
	FullText   string         `json:"-"`
}

// Listing is one row of a user's file list.
type Listing struct {
	Name        string
	Type        string
	Size        int64
	ModTime     time.Time
	URL         string
	ViewTextURL string // empty when the type has no text view
}

// Service stores uploads, extracts their text and indexes the result.
type Service struct {
	storage      storage.StorageBackend
	db           *gorm.DB
	extractors   *extract.Registry
	previewLimit int
}

func NewService(backend storage.StorageBackend, db *gorm.DB, extractors *extract.Registry, previewLimit int) *Service {
	if previewLimit < 1 {
		previewLimit = DefaultPreviewLimit
	}
	return &Service{
		storage:      backend,
		db:           db,
		extractors:   extractors,
		previewLimit: previewLimit,
	}
}

// FileURL is the public path of an owner's stored file.
func FileURL(owner, filename string) string {
	return "/uploads/" + url.PathEscape(owner) + "/" + url.PathEscape(filename)
}

// ViewTextURL is the path of the text view for one of the current user's files.
func ViewTextURL(filename string) string {
	return "/view_text/" + url.PathEscape(filename)
}

// Accept validates, stores and extracts one upload. Validation failures write
// nothing. Extraction failures do not fail the upload; they are reported in
// the result. A file with the same sanitized name replaces the previous one.
func (s *Service) Accept(ctx context.Context, owner, originalFilename string, r io.Reader) (res UploadResult, err error) {
	defer func() {
		metrics.RecordUpload(res.Type, err == nil, res.Size)
	}()

	if originalFilename == "" {
		return UploadResult{}, ErrNoSelectedFile
	}
	if !AllowedFile(originalFilename) {
		return UploadResult{}, ErrTypeNotAllowed
	}
	filename := SanitizeFilename(originalFilename)
	if !AllowedFile(filename) {
		return UploadResult{}, ErrTypeNotAllowed
	}
	if !validName(owner) {
		return UploadResult{}, fmt.Errorf("invalid owner %q", owner)
	}

	ext := extension(filename)
	key := storage.Key(owner, filename)

	saved, err := s.storage.Save(ctx, r, storage.SaveOptions{
		Path:        key,
		ContentType: mime.TypeByExtension("." + ext),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to store upload: %w", err)
	}
	logger.Info("upload stored", "owner", owner, "filename", filename, "size", saved.Size)

	kind := extract.KindForExtension(ext)
	result, err := s.extractStored(ctx, kind, key)
	if err != nil {
		return UploadResult{}, err
	}

	if err := s.index(ctx, owner, filename, kind, saved, result); err != nil {
		return UploadResult{}, err
	}

	file := UploadedFile{
		Filename:    filename,
		StoragePath: saved.Path,
		URL:         FileURL(owner, filename),
		Type:        ext,
	}
	full := result.Display()
	out := UploadResult{
		Filename:   filename,
		URL:        file.URL,
		File:       file,
		Size:       saved.Size,
		Extraction: result,
		FullText:   full,
	}

	switch kind {
	case extract.KindImage:
		preview := truncateRunes(full, s.previewLimit)
		out.Type = string(extract.KindImage)
		out.OCR = &preview
	case extract.KindPDF, extract.KindDocx, extract.KindTxt:
		preview := Preview(full, s.previewLimit)
		out.Type = ext
		out.Summary = &preview
	default:
		out.Type = "document"
	}
	return out, nil
}

// extractStored reads the stored copy back and extracts it.
func (s *Service) extractStored(ctx context.Context, kind extract.Kind, key string) (extract.Result, error) {
	if kind == extract.KindOther {
		return extract.Result{Kind: kind}, nil
	}
	rc, err := s.storage.Open(ctx, key)
	if err != nil {
		return extract.Result{}, fmt.Errorf("failed to reopen upload: %w", err)
	}
	defer rc.Close()
	return s.extractors.Extract(ctx, kind, rc), nil
}

// index upserts the document row for (owner, filename).
func (s *Service) index(ctx context.Context, owner, filename string, kind extract.Kind, saved storage.SaveResult, result extract.Result) error {
	doc := models.Document{
		Owner:       owner,
		Filename:    filename,
		Kind:        string(kind),
		StoragePath: saved.Path,
		FileSize:    saved.Size,
		Hash:        saved.Hash,
		Text:        result.Text,
		Metadata:    datatypes.NewJSONType(result.Meta),
	}
	if result.Err != nil {
		doc.ExtractError = truncateRunes(result.Err.Error(), 500)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind", "storage_path", "file_size", "hash", "text", "extract_error", "metadata", "updated_at",
		}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

// List returns the owner's stored files in natural order.
func (s *Service) List(ctx context.Context, owner string) ([]Listing, error) {
	if !validName(owner) {
		return nil, nil
	}
	files, err := s.storage.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return natural.Less(strings.ToLower(files[i].Name), strings.ToLower(files[j].Name))
	})

	listings := make([]Listing, 0, len(files))
	for _, f := range files {
		l := Listing{
			Name:    f.Name,
			Type:    extension(f.Name),
			Size:    f.Size,
			ModTime: f.ModTime,
			URL:     FileURL(owner, f.Name),
		}
		if viewable(f.Name) {
			l.ViewTextURL = ViewTextURL(f.Name)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// Text returns the full extracted text of one of the owner's files, or a
// placeholder when the file type has no text view. Files without an index row
// are extracted on demand.
func (s *Service) Text(ctx context.Context, owner, filename string) (string, error) {
	if !validName(owner) || !validName(filename) {
		return "", ErrNotFound
	}
	key := storage.Key(owner, filename)
	if _, err := s.storage.Stat(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if !viewable(filename) {
		return CannotDisplay, nil
	}

	kind := extract.KindForExtension(extension(filename))

	var doc models.Document
	err := s.db.WithContext(ctx).Where("owner = ? AND filename = ?", owner, filename).First(&doc).Error
	switch {
	case err == nil:
		res := extract.Result{Kind: kind, Text: doc.Text}
		if doc.ExtractError != "" {
			res.Err = errors.New(doc.ExtractError)
		}
		return res.Display(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		res, err := s.extractStored(ctx, kind, key)
		if err != nil {
			return "", err
		}
		return res.Display(), nil
	default:
		return "", fmt.Errorf("failed to load document: %w", err)
	}
}

// Open streams the raw bytes of one of the owner's files.
func (s *Service) Open(ctx context.Context, owner, filename string) (io.ReadCloser, storage.FileInfo, error) {
	if !validName(owner) || !validName(filename) {
		return nil, storage.FileInfo{}, ErrNotFound
	}
	key := storage.Key(owner, filename)
	info, err := s.storage.Stat(ctx, key)
	if err == nil {
		var rc io.ReadCloser
		if rc, err = s.storage.Open(ctx, key); err == nil {
			return rc, info, nil
		}
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return nil, storage.FileInfo{}, ErrNotFound
	}
	return nil, storage.FileInfo{}, fmt.Errorf("failed to open file: %w", err)
}

// Preview caps text at limit characters, appending "..." when it was cut.
func Preview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return truncateRunes(text, limit) + "..."
}

func truncateRunes(s string, limit int) string {
	if limit < 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

func viewable(name string) bool {
	return AllowedFile(name)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
