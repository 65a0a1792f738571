package extract

import "strings"

// Document is the OCR engine's raw output normalized once per run: trimmed
// non-empty lines in page order, plus a single whitespace-collapsed string.
// Read-only after construction.
type Document struct {
	Lines []string
	Text  string
}

// Normalize derives a Document from raw OCR output.
func Normalize(raw string) Document {
	var lines []string
	for _, ln := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(ln); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return Document{
		Lines: lines,
		Text:  strings.Join(strings.Fields(raw), " "),
	}
}
