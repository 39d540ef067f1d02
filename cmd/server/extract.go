package main

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractText turns an uploaded file into a paragraph.
func extractText(contentType string, content []byte) (string, error) {
	if contentType == "application/pdf" {
		return extractPDF(content)
	}
	return string(content), nil
}

func extractPDF(content []byte) (string, error) {
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(text))
	}
	return b.String(), nil
}
