package normalize

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfMagic is the required header of every PDF container.
var pdfMagic = []byte("%PDF-")

// IsPDF sniffs the PDF magic header. Used both for container detection and
// to reject 2xx responses that deliver an HTML error page where a PDF was
// promised.
func IsPDF(b []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(b, "\r\n \t"), pdfMagic)
}

// extractPDF extracts the plain text of a PDF, page by page, separating
// pages with a blank line. The output feeds the same pagination path as the
// HTML conversions.
func extractPDF(r io.ReaderAt, size int64) (string, error) {
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var sb strings.Builder
	for page := 1; page <= doc.NumPage(); page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", page, err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(text))
	}
	return sb.String(), nil
}
