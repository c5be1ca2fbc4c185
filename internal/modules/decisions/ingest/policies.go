package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Policies decodes a policy upload into policy texts.
//   - csv: a "policy" column
//   - json: a list of strings or {"text": ...} objects
//   - txt: one policy per non-blank line
func Policies(format Format, content []byte) ([]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	var (
		out []string
		err error
	)
	switch format {
	case FormatCSV:
		out, err = csvPolicies(content)
	case FormatJSON:
		out, err = jsonPolicies(content)
	case FormatTXT:
		for _, line := range strings.Split(string(content), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no policies in file", ErrEmpty)
	}
	return out, nil
}

func csvPolicies(content []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "policy") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: CSV must have a 'policy' column", ErrMalformed)
	}
	var out []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if col < len(rec) {
			if text := strings.TrimSpace(rec[col]); text != "" {
				out = append(out, text)
			}
		}
	}
}

func jsonPolicies(content []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, fmt.Errorf("%w: JSON must be a list of policy strings or objects", ErrMalformed)
	}
	out := make([]string, 0, len(items))
	for i, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || strings.TrimSpace(obj.Text) == "" {
			return nil, fmt.Errorf("%w: item %d has no text", ErrMalformed, i+1)
		}
		out = append(out, strings.TrimSpace(obj.Text))
	}
	return out, nil
}
