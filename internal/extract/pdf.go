package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

func (e *Extractor) extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	return e.joinPages(r.NumPage(), func(n int) (string, error) {
		page := r.Page(n)
		if page.V.IsNull() {
			return "", nil
		}
		return page.GetPlainText(nil)
	}), nil
}

// joinPages collects the text of pages 1..n. Pages that fail or carry no text
// (scanned images) are skipped instead of failing the document.
func (e *Extractor) joinPages(n int, pageText func(n int) (string, error)) string {
	var buf strings.Builder
	for i := 1; i <= n; i++ {
		text, err := pageText(i)
		if err != nil {
			if e.logger != nil {
				e.logger.Debug("skipping unreadable PDF page", zap.Int("page", i), zap.Error(err))
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
	}
	return buf.String()
}
