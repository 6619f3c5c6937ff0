package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// textRun matches the inner text of a WordprocessingML (w:t) or DrawingML (a:t) run.
var textRun = regexp.MustCompile(`<(?:w|a):t(?:\s[^>]*)?>([^<]*)</(?:w|a):t>`)

func openZip(content []byte, kind string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	return zr, nil
}

// readZipEntry returns the contents of the named entry, or nil if it does not exist.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

// runText concatenates the text runs found in an XML fragment.
func runText(fragment string) string {
	var b strings.Builder
	for _, m := range textRun.FindAllStringSubmatch(fragment, -1) {
		b.WriteString(html.UnescapeString(m[1]))
	}
	return b.String()
}
