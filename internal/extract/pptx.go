package extract

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX returns one line per slide, in slide-number order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePart.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, name: f.Name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var lines []string
	for _, s := range slides {
		data, err := readZipEntry(zr, s.name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		parts := textRun.FindAllStringSubmatch(string(data), -1)
		words := make([]string, 0, len(parts))
		for _, p := range parts {
			if w := strings.TrimSpace(html.UnescapeString(p[1])); w != "" {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}
