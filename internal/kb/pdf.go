// File path: internal/kb/pdf.go
package kb

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF marks input whose bytes do not carry a PDF signature.
var ErrNotPDF = errors.New("not a pdf document")

var pdfSignature = []byte("%PDF-")

// LooksLikePDF checks the document signature without parsing the body.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfSignature)
}

// PDFExtractor pulls plain text out of PDF bytes. The zero value is ready to
// use; the type exists so the ingestion pipeline can take extraction as an
// injected capability.
type PDFExtractor struct{}

// Extract parses the document and concatenates the text of every page in
// order. Corrupt or non-PDF input surfaces as a typed error, not a crash;
// the underlying parser is known to panic on hostile input so the panic is
// converted here.
func (PDFExtractor) Extract(data []byte) (ext Extraction, err error) {
	if !LooksLikePDF(data) {
		return Extraction{}, ErrNotPDF
	}
	defer func() {
		if r := recover(); r != nil {
			ext = Extraction{}
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Extraction{}, fmt.Errorf("parse pdf: %w", err)
	}
	pages := reader.NumPage()
	var builder strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not discard the rest of
			// the document.
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}
	return Extraction{Text: builder.String(), PageCount: pages}, nil
}
