// Package cli formats benkyo command output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/benkyo/internal/indexer"
	"github.com/hyperjump/benkyo/internal/study"
	"github.com/hyperjump/benkyo/pkg/utils"
)

// OutputFormat selects human-readable or JSON output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

const nameWidth = 32

// WriteStatus writes a user's catalog summary to w.
func WriteStatus(w io.Writer, st *study.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "subjects:          %d\n", st.Subjects)
	fmt.Fprintf(w, "chapters:          %d\n", len(st.Chapters))
	fmt.Fprintf(w, "disk_usage:        %s\n", FormatBytes(st.DiskUsageBytes))
	if len(st.Chapters) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-*s %-*s %9s  %s\n", nameWidth, "SUBJECT", nameWidth, "CHAPTER", "MATERIALS", "INDEXED")
	for _, c := range st.Chapters {
		indexed := "no"
		if c.Indexed {
			indexed = "yes"
		}
		fmt.Fprintf(w, "%-*s %-*s %9d  %s\n",
			nameWidth, utils.Truncate(c.Subject, nameWidth-3),
			nameWidth, utils.Truncate(c.Chapter, nameWidth-3),
			c.Materials, indexed)
	}
	return nil
}

// WriteBuildResult reports a chapter index build.
func WriteBuildResult(w io.Writer, subject, chapter string, res *indexer.BuildResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{
			"subject": subject,
			"chapter": chapter,
			"files":   res.Files,
			"chunks":  res.Chunks,
		})
	}
	_, err := fmt.Fprintf(w, "Indexed %s / %s: %d files, %d chunks\n", subject, chapter, res.Files, res.Chunks)
	return err
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
