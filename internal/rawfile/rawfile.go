package rawfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Content is the read-once view of one input file: the raw bytes, the raw
// lines, and the comma-split rows. It is never modified after Read.
type Content struct {
	Path  string
	Raw   []byte
	Lines []string
	Rows  [][]string
}

// Read loads the whole file into a Content. Each file is fully read before
// any format decision is made; there is no streaming parse.
func Read(path string) (*Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(path, raw), nil
}

// Parse builds a Content from in-memory bytes. Rows come from encoding/csv
// with variable field counts; a line that csv cannot parse falls back to a
// plain comma split so one odd line never loses the rest of the file.
func Parse(path string, raw []byte) *Content {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		r := csv.NewReader(strings.NewReader(line))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		fields, err := r.Read()
		if err != nil {
			fields = strings.Split(line, ",")
		}
		rows = append(rows, fields)
	}
	return &Content{Path: path, Raw: raw, Lines: lines, Rows: rows}
}

// Line returns the raw line at index i, or "" past the end.
func (c *Content) Line(i int) string {
	if i < 0 || i >= len(c.Lines) {
		return ""
	}
	return c.Lines[i]
}

// HeadLower joins the first n raw lines lowercased. Validators use it for
// cheap case-insensitive signature checks without scanning the whole file.
func (c *Content) HeadLower(n int) string {
	if n > len(c.Lines) {
		n = len(c.Lines)
	}
	return strings.ToLower(strings.Join(c.Lines[:n], "\n"))
}
