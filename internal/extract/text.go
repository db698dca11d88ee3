package extract

import (
	"context"
	"io"
	"strings"
)

// TextExtractor reads plain text. Bytes that are not valid UTF-8 are dropped
// and surrounding whitespace is kept as uploaded.
type TextExtractor struct{}

func (TextExtractor) Extract(ctx context.Context, r io.Reader) Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{Kind: KindTxt, Err: err}
	}
	return Result{Kind: KindTxt, Text: strings.ToValidUTF8(string(data), "")}
}
