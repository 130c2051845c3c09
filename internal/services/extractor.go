package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"code.sajari.com/docconv"
)

// TextExtractor turns raw document bytes into plain text. It never returns an
// empty string with a nil error: a document without text yields an
// *ExtractionError of kind NoTextFound.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mediaType MediaType) (string, error)
}

type textExtractor struct {
	pdfParser PDFParserService
	ocr       OCRChain
}

func NewTextExtractor(pdfParser PDFParserService, ocr OCRChain) TextExtractor {
	return &textExtractor{
		pdfParser: pdfParser,
		ocr:       ocr,
	}
}

func (e *textExtractor) Extract(ctx context.Context, data []byte, mediaType MediaType) (string, error) {
	var (
		text string
		err  error
	)

	switch {
	case mediaType == MediaPDF:
		text, err = e.extractPDF(data)
	case mediaType.IsImage():
		text, err = e.ocr.ExtractText(ctx, data)
	case mediaType == MediaText:
		text = decodePlainText(data)
	case mediaType == MediaDOCX:
		text, err = extractDocx(data)
	default:
		return "", &ExtractionError{Kind: UnsupportedMediaType, Err: fmt.Errorf("%s", mediaType)}
	}
	if err != nil {
		return "", err
	}

	return RequireText(text)
}

func (e *textExtractor) extractPDF(data []byte) (string, error) {
	pages, err := e.pdfParser.ExtractPages(data)
	if err != nil {
		return "", &ExtractionError{Kind: MalformedContainer, Err: err}
	}

	log.Printf("📄 Extracted text layer from %d PDF pages\n", len(pages))
	return strings.Join(pages, "\n"), nil
}

// RequireText returns text unchanged, or a NoTextFound error when it is empty
// after trimming whitespace.
func RequireText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &ExtractionError{Kind: NoTextFound}
	}
	return text, nil
}

func decodePlainText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "")
}

func extractDocx(data []byte) (string, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return "", &ExtractionError{Kind: MalformedContainer, Err: fmt.Errorf("failed to read docx: %w", err)}
	}
	return text, nil
}
