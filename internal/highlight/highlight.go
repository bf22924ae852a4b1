// Package highlight wraps case-insensitive query matches in already-styled
// terminal text without disturbing existing escape sequences, and reports
// which lines matched so the viewport can jump between them.
package highlight

import (
	"regexp"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

func ApplyANSI(input, query string, wrap func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	lines := strings.SplitAfter(input, "\n")
	if len(lines) == 0 {
		lines = []string{input}
	}

	var out strings.Builder
	matched := make([]int, 0, 16)
	total := 0

	for lineNo, line := range lines {
		hasNewline := strings.HasSuffix(line, "\n")
		core := strings.TrimSuffix(line, "\n")

		rendered, count := highlightLine(core, query, wrap)
		out.WriteString(rendered)
		if hasNewline {
			out.WriteByte('\n')
		}
		if count > 0 {
			matched = append(matched, lineNo)
			total += count
		}
	}

	return Result{
		Text:      out.String(),
		Count:     total,
		LineIndex: matched,
	}
}

// highlightLine splits a line at its escape sequences and highlights only the
// plain segments, so a match never spans an ANSI boundary.
func highlightLine(s, query string, wrap func(string) string) (string, int) {
	spans := ansiCSI.FindAllStringIndex(s, -1)
	if len(spans) == 0 {
		return highlightPlain(s, query, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, span := range spans {
		if span[0] > pos {
			plain, count := highlightPlain(s[pos:span[0]], query, wrap)
			out.WriteString(plain)
			total += count
		}
		out.WriteString(s[span[0]:span[1]])
		pos = span[1]
	}
	if pos < len(s) {
		plain, count := highlightPlain(s[pos:], query, wrap)
		out.WriteString(plain)
		total += count
	}
	return out.String(), total
}

func highlightPlain(s, query string, wrap func(string) string) (string, int) {
	if s == "" || query == "" {
		return s, 0
	}

	lower := strings.ToLower(s)
	q := strings.ToLower(query)

	var out strings.Builder
	count := 0
	start := 0
	for {
		rel := strings.Index(lower[start:], q)
		if rel < 0 {
			out.WriteString(s[start:])
			break
		}
		idx := start + rel
		end := idx + len(query)
		out.WriteString(s[start:idx])
		out.WriteString(wrap(s[idx:end]))
		count++
		start = end
	}
	if count == 0 {
		return s, 0
	}
	return out.String(), count
}
