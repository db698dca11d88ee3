package extract

import (
	"context"
	"io"
	"strings"

	"code.sajari.com/docconv"
)

type convertFunc func(io.Reader) (string, map[string]string, error)

// docconvExtractor wraps one of the docconv format converters.
type docconvExtractor struct {
	kind    Kind
	convert convertFunc
	clean   func(string) string
}

// NewPDFExtractor extracts the text of every page in order. Pages without a
// text layer contribute nothing. docconv shells out to pdftotext (poppler-utils)
// for this; without it on PATH every PDF yields a failed result.
func NewPDFExtractor() Extractor {
	return &docconvExtractor{kind: KindPDF, convert: docconv.ConvertPDF, clean: cleanPDF}
}

// NewDocxExtractor extracts paragraph text in document order, one paragraph per line.
func NewDocxExtractor() Extractor {
	return &docconvExtractor{kind: KindDocx, convert: docconv.ConvertDocx, clean: strings.TrimSpace}
}

// NewTesseractExtractor runs local OCR through docconv. The binary must be
// built with the "ocr" tag and libtesseract installed; otherwise every image
// yields a failed result.
func NewTesseractExtractor() Extractor {
	return &docconvExtractor{kind: KindImage, convert: docconv.ConvertImage, clean: strings.TrimSpace}
}

func (e *docconvExtractor) Extract(ctx context.Context, r io.Reader) Result {
	if err := ctx.Err(); err != nil {
		return Result{Kind: e.kind, Err: err}
	}
	text, meta, err := e.convert(r)
	if err != nil {
		return Result{Kind: e.kind, Err: err}
	}
	if e.clean != nil {
		text = e.clean(text)
	}
	return Result{Kind: e.kind, Text: text, Meta: meta}
}

// cleanPDF drops the form feeds pdftotext emits between pages.
func cleanPDF(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\f", ""))
}
