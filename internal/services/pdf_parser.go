package services

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParserService interface {
	// ExtractPages returns the text layer of every page in page order. A page
	// without extractable text yields "".
	ExtractPages(data []byte) ([]string, error)
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

func (p *pdfParserService) ExtractPages(data []byte) (pages []string, err error) {
	// the pdf reader panics on some broken xref tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to read PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPage := r.NumPage()
	pages = make([]string, 0, totalPage)

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		pages = append(pages, extractPage(r, pageIndex))
	}

	return pages, nil
}

func extractPage(r *pdf.Reader, pageIndex int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("⚠️  Page %d could not be decoded: %v\n", pageIndex, rec)
			text = ""
		}
	}()

	page := r.Page(pageIndex)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		log.Printf("⚠️  Page %d has no readable text layer: %v\n", pageIndex, err)
		return ""
	}

	return text
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleanedLines := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
