package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Format is a supported upload file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
)

const (
	DefaultMaxRows = 50
	// rawContentLimit bounds the text kept for a txt upload with no key: value lines.
	rawContentLimit = 5000
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooManyRows       = errors.New("too many rows")
	ErrEmpty             = errors.New("no applicant data found")
	ErrMalformed         = errors.New("malformed file")
)

// FormatOf resolves the format from an explicit hint or the file extension.
func FormatOf(filename, hint string) (Format, error) {
	kind := strings.ToLower(strings.TrimSpace(hint))
	if kind == "" {
		kind = strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	}
	switch Format(kind) {
	case FormatCSV, FormatJSON, FormatTXT:
		return Format(kind), nil
	}
	if kind == "" {
		kind = "unknown"
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, kind)
}

// Applicants decodes an upload into raw applicant rows. Values are left for
// the domain schema to validate; csv and txt cells that look numeric are
// converted the way a spreadsheet would.
func Applicants(format Format, content []byte, maxRows int) ([]map[string]any, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", ErrMalformed)
	}
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	var (
		rows []map[string]any
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = csvRows(content, maxRows)
	case FormatJSON:
		rows, err = jsonRows(content)
	case FormatTXT:
		rows = txtRows(string(content))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	if len(rows) > maxRows {
		return nil, fmt.Errorf("%w: %d rows, max %d", ErrTooManyRows, len(rows), maxRows)
	}
	return rows, nil
}

func csvRows(content []byte, maxRows int) ([]map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]any
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if col == "" || i >= len(rec) {
				continue
			}
			if cell := strings.TrimSpace(rec[i]); cell != "" {
				row[col] = Scalar(cell)
			}
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
		if len(rows) > maxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, maxRows)
		}
	}
	return rows, nil
}

func jsonRows(content []byte) ([]map[string]any, error) {
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		rows := make([]map[string]any, 0, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: item %d is not an object", ErrMalformed, i+1)
			}
			rows = append(rows, m)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: JSON must be an object or a list of objects", ErrMalformed)
	}
}

// txtRows reads "key: value" lines. Blank lines separate applicants. A file
// with no such lines becomes a single raw_content row.
func txtRows(text string) []map[string]any {
	var (
		rows []map[string]any
		cur  map[string]any
	)
	flush := func() {
		if len(cur) > 0 {
			rows = append(rows, cur)
		}
		cur = nil
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		if key == "" {
			continue
		}
		if cur == nil {
			cur = map[string]any{}
		}
		cur[key] = Scalar(value)
	}
	flush()
	if len(rows) == 0 {
		raw := strings.TrimSpace(text)
		if raw == "" {
			return nil
		}
		if len(raw) > rawContentLimit {
			raw = strings.ToValidUTF8(raw[:rawContentLimit], "")
		}
		return []map[string]any{{"raw_content": raw}}
	}
	return rows
}

// Scalar converts a plain integer or decimal string to a number and returns
// anything else trimmed but unchanged.
func Scalar(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if !strings.Contains(value, ".") {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		return value
	}
	whole, frac, _ := strings.Cut(value, ".")
	if isDigits(strings.TrimPrefix(whole, "-")) && isDigits(frac) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
