package extract

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// textractMaxBytes is the synchronous DetectDocumentText payload limit.
const textractMaxBytes = 10 * 1024 * 1024

// TextractAPI is the subset of the Textract client used for OCR.
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// TextractExtractor performs OCR on images with AWS Textract.
type TextractExtractor struct {
	client  TextractAPI
	timeout time.Duration
}

// NewTextractExtractor builds a Textract client from the default AWS
// credential chain in the given region.
func NewTextractExtractor(ctx context.Context, region string) (*TextractExtractor, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewTextractExtractorWithClient(textract.NewFromConfig(cfg)), nil
}

// NewTextractExtractorWithClient wraps an existing client.
func NewTextractExtractorWithClient(client TextractAPI) *TextractExtractor {
	return &TextractExtractor{client: client, timeout: 30 * time.Second}
}

func (e *TextractExtractor) Extract(ctx context.Context, r io.Reader) Result {
	data, err := io.ReadAll(io.LimitReader(r, textractMaxBytes+1))
	if err != nil {
		return Result{Kind: KindImage, Err: err}
	}
	if len(data) > textractMaxBytes {
		return Result{Kind: KindImage, Err: fmt.Errorf("image exceeds %d byte Textract limit", textractMaxBytes)}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return Result{Kind: KindImage, Err: fmt.Errorf("textract: %w", err)}
	}

	var lines []string
	var totalConfidence float32
	for _, block := range out.Blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		lines = append(lines, aws.ToString(block.Text))
		totalConfidence += aws.ToFloat32(block.Confidence)
	}

	meta := map[string]string{"lines": strconv.Itoa(len(lines))}
	if len(lines) > 0 {
		meta["confidence"] = strconv.FormatFloat(float64(totalConfidence)/float64(len(lines)), 'f', 1, 64)
	}
	return Result{
		Kind: KindImage,
		Text: strings.TrimSpace(strings.Join(lines, "\n")),
		Meta: meta,
	}
}
