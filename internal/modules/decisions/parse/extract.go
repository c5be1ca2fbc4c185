package parse

import (
	"encoding/json"
	"strings"
)

// FindObject locates a JSON object inside text that may carry prose or
// markdown fences around it. Every balanced {...} span is tried in order;
// the first object accepted by prefer wins, otherwise the first object that
// decodes at all.
func FindObject(text string, prefer func(map[string]any) bool) (map[string]any, bool) {
	text = stripFences(text)
	var first map[string]any
	for start := 0; start < len(text); {
		i := strings.IndexByte(text[start:], '{')
		if i < 0 {
			break
		}
		i += start
		end, ok := matchBrace(text, i)
		if !ok {
			start = i + 1
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(text[i:end+1]), &obj); err != nil {
			// maybe a brace inside prose; look for an object nested in it
			start = i + 1
			continue
		}
		if prefer == nil || prefer(obj) {
			return obj, true
		}
		if first == nil {
			first = obj
		}
		start = end + 1
	}
	return first, first != nil
}

// matchBrace returns the index of the brace closing the one at open,
// skipping braces inside JSON strings.
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
