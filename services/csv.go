package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"mime"
	"storeadmin_server/lib"
	"strconv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// csvRow is one data record keyed by lowercased header name
type csvRow struct {
	Line  int
	cells map[string]string
}

// get returns the first non-empty cell among keys
func (r csvRow) get(keys ...string) string {
	for _, k := range keys {
		if v := r.cells[k]; v != "" {
			return v
		}
	}
	return ""
}

// has reports whether any of keys holds a non-empty cell
func (r csvRow) has(keys ...string) bool {
	return r.get(keys...) != ""
}

type csvTable struct {
	Headers map[string]bool
	Rows    []csvRow
}

func (t *csvTable) hasHeader(keys ...string) bool {
	for _, k := range keys {
		if t.Headers[k] {
			return true
		}
	}
	return false
}

// parseCSV reads an RFC 4180 document. Headers are trimmed and lowercased,
// cells are trimmed. Blank records are skipped.
func parseCSV(part string, data []byte) (*csvTable, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, lib.NewInputError("%s: file is empty", part)
	}
	if err != nil {
		return nil, lib.NewInputError("%s: unreadable CSV: %v", part, err)
	}

	names := make([]string, len(header))
	table := &csvTable{Headers: make(map[string]bool, len(header))}
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
		if names[i] != "" {
			table.Headers[names[i]] = true
		}
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, lib.NewInputError("%s: unreadable CSV: %v", part, err)
		}
		line, _ := r.FieldPos(0)

		row := csvRow{Line: line, cells: make(map[string]string, len(names))}
		blank := true
		for i, v := range record {
			if i >= len(names) || names[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			if _, seen := row.cells[names[i]]; !seen || row.cells[names[i]] == "" {
				row.cells[names[i]] = v
			}
		}
		if blank {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

var acceptedCSVTypes = map[string]bool{
	"":                         true,
	"text/csv":                 true,
	"text/plain":               true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"application/octet-stream": true,
}

// CheckCSVContentType rejects upload parts that cannot hold a CSV document
func CheckCSVContentType(part, contentType string) error {
	mediaType := contentType
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return lib.NewInputError("%s: invalid content type %q", part, contentType)
		}
		mediaType = parsed
	}
	if !acceptedCSVTypes[strings.ToLower(mediaType)] {
		return lib.NewInputError("%s: unsupported content type %q", part, contentType)
	}
	return nil
}

// parseWhole accepts a non-negative integer, or a decimal with no fractional part
func parseWhole(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

func parseTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// splitLabels splits a collection list on comma, semicolon or pipe
func splitLabels(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cleanImageSource strips the stray quotes spreadsheet exports leave around URLs
func cleanImageSource(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
