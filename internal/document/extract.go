package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Minimum amount of usable text a document must yield. Anything shorter
// cannot produce a meaningful script.
const minTextLength = 40

// Extract pulls narration-ready plain text out of an uploaded document.
// PDFs go through the pdf reader; everything else is treated as plain text.
func Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var (
		text string
		err  error
	)

	switch ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".txt", ".md", "":
		text, err = extractPlainText(data)
	default:
		return "", fmt.Errorf("unsupported document type: %s", ext)
	}

	if err != nil {
		return "", err
	}

	text = CleanText(text)
	if len(text) < minTextLength {
		return "", fmt.Errorf("document yielded too little text (%d chars)", len(text))
	}

	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// A single corrupt page shouldn't sink the whole document
			continue
		}

		sb.WriteString(content)
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("pdf contains no extractable text")
	}

	return sb.String(), nil
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document is not valid UTF-8 text")
	}
	return string(data), nil
}

// CleanText collapses runs of whitespace into single spaces and trims the
// result, so PDF line breaks and indentation don't leak into narration.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
