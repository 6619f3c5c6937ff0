package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	docxDefaultDocument = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// docxParagraph matches a w:p element (self-closing or not). w:pPr and friends are excluded
// because the tag name must end right after "w:p".
var docxParagraph = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*?)?(?:/>|>(.*?)</w:p>)`)

// overrideRe captures Override elements of [Content_Types].xml; attribute order varies.
var overrideRe = regexp.MustCompile(`<Override\s[^>]*>`)

var partNameAttr = regexp.MustCompile(`PartName="([^"]+)"`)

// docxMainPart finds the main document part declared in [Content_Types].xml.
func docxMainPart(contentTypes []byte) string {
	for _, o := range overrideRe.FindAllString(string(contentTypes), -1) {
		if !strings.Contains(o, `ContentType="`+docxMainContentType+`"`) {
			continue
		}
		if m := partNameAttr.FindStringSubmatch(o); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

// extractDOCX returns the document's paragraphs, one per line. Runs within a paragraph
// are concatenated without separators since Word splits words across runs freely.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	docPath := docxDefaultDocument
	contentTypes, err := readZipEntry(zr, contentTypesPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if p := docxMainPart(contentTypes); p != "" {
		docPath = p
	}
	docXML, err := readZipEntry(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	var lines []string
	for _, m := range docxParagraph.FindAllStringSubmatch(string(docXML), -1) {
		if text := strings.TrimSpace(runText(m[1])); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}
