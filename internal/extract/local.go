package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// LocalExtractor extracts text directly from PDF bytes and mines the
// structured fields with regular expressions. It is the fallback used when
// no extraction service is configured, and runs entirely in-process.
type LocalExtractor struct{}

// NewLocalExtractor creates a local PDF extractor.
func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{}
}

// Extract parses the PDF and mines fields from its plain text. A document
// that cannot be parsed yields a failed result, not an error: the caller
// routes it to failed/ like any other terminal extraction failure.
func (e *LocalExtractor) Extract(ctx context.Context, content []byte, filename string) (*models.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := pdfText(content)
	if err != nil {
		return &models.ExtractionResult{
			Success: false,
			Error:   fmt.Sprintf("parse pdf: %v", err),
		}, nil
	}

	return &models.ExtractionResult{
		Success: true,
		Text:    text,
		Fields:  MineFields(text, filename),
	}, nil
}

func pdfText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(text), nil
}
