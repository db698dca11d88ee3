// Package extract turns stored uploads into plain text. Extraction never fails
// an upload: problems are carried in Result.Err and rendered as a placeholder.
package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agjmills/docchat/internal/logger"
	"github.com/agjmills/docchat/internal/metrics"
)

// Kind classifies an upload by the extractor that handles it.
type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
	KindDocx  Kind = "docx"
	KindTxt   Kind = "txt"
	KindOther Kind = "other"
)

// KindForExtension maps a file extension (with or without the leading dot,
// any case) to its Kind.
func KindForExtension(ext string) Kind {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png", "jpg", "jpeg", "gif":
		return KindImage
	case "pdf":
		return KindPDF
	case "docx":
		return KindDocx
	case "txt":
		return KindTxt
	default:
		return KindOther
	}
}

// Result is the outcome of one extraction: either text or a failure reason.
type Result struct {
	Kind Kind
	Text string
	Meta map[string]string
	Err  error
}

// Failed reports whether extraction produced an error instead of text.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Display returns the text shown to users. Failures become an inline
// placeholder such as "[Error extracting PDF text: ...]".
func (r Result) Display() string {
	if r.Err != nil {
		return fmt.Sprintf("[Error extracting %s text: %v]", r.Kind.label(), r.Err)
	}
	return r.Text
}

func (k Kind) label() string {
	switch k {
	case KindPDF, KindDocx:
		return strings.ToUpper(string(k))
	case KindTxt:
		return "text"
	default:
		return string(k)
	}
}

// Extractor converts the content read from r into text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) Result
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, r io.Reader) Result

func (f ExtractorFunc) Extract(ctx context.Context, r io.Reader) Result {
	return f(ctx, r)
}

// Registry dispatches extraction by Kind.
type Registry struct {
	extractors map[Kind]Extractor
}

// NewRegistry returns a registry with the PDF, DOCX and text extractors
// installed and the given extractor handling images.
func NewRegistry(image Extractor) *Registry {
	r := &Registry{extractors: make(map[Kind]Extractor)}
	r.Register(KindPDF, NewPDFExtractor())
	r.Register(KindDocx, NewDocxExtractor())
	r.Register(KindTxt, TextExtractor{})
	r.Register(KindImage, image)
	return r
}

// Register installs e for kind, replacing any existing extractor.
func (r *Registry) Register(kind Kind, e Extractor) {
	r.extractors[kind] = e
}

// For returns the extractor for kind. Unknown kinds get one that yields an
// empty successful result.
func (r *Registry) For(kind Kind) Extractor {
	if e, ok := r.extractors[kind]; ok && e != nil {
		return e
	}
	return ExtractorFunc(func(ctx context.Context, _ io.Reader) Result {
		return Result{Kind: KindOther}
	})
}

// Extract runs the extractor for kind, recording metrics and logging failures.
func (r *Registry) Extract(ctx context.Context, kind Kind, rd io.Reader) Result {
	start := time.Now()
	result := r.For(kind).Extract(ctx, rd)
	if result.Kind == "" {
		result.Kind = kind
	}
	metrics.RecordExtraction(string(kind), !result.Failed(), time.Since(start))

	if result.Failed() {
		logger.Warn("text extraction failed", "kind", kind, "error", result.Err)
	} else {
		logger.Debug("text extracted", "kind", kind, "chars", len(result.Text), "duration", time.Since(start))
	}
	return result
}
