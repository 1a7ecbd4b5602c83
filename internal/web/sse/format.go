package sse

import "strings"

// formatSSEMessage formats an SSE event. Multi-line data gets a "data: "
// prefix on each line.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteByte('\n')
	for _, line := range splitLines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// splitLines splits s on LF or CRLF, dropping a single trailing line break.
// Always returns at least one line.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
