package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "gameUpdate",
			data:      `{"type":"gameUpdate"}`,
			expected:  "event: gameUpdate\ndata: {\"type\":\"gameUpdate\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "gameUpdate",
			data:      "{\n  \"code\": \"ABC\"\n}",
			expected:  "event: gameUpdate\ndata: {\ndata:   \"code\": \"ABC\"\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"single line", "hello", []string{"hello"}},
		{"two lines", "line1\nline2", []string{"line1", "line2"}},
		{"trailing newline", "line1\n", []string{"line1"}},
		{"empty string", "", []string{""}},
		{"crlf line endings", "line1\r\nline2\r\n", []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitLines(tt.input))
		})
	}
}

func TestViewerDeliverWrapsEvent(t *testing.T) {
	v := NewViewer("v1")

	assert.True(t, v.Deliver([]byte(`{"type":"gameUpdate"}`)))

	msg := <-v.send
	assert.Equal(t, "event: gameUpdate\ndata: {\"type\":\"gameUpdate\"}\n\n", string(msg))
}

func TestViewerDropsWhenFullOrClosed(t *testing.T) {
	v := NewViewer("v1")
	for i := 0; i < sendBufferSize; i++ {
		assert.True(t, v.Deliver([]byte("x")))
	}
	assert.False(t, v.Deliver([]byte("x")), "full buffer drops")

	<-v.send
	v.Close()
	assert.False(t, v.Deliver([]byte("x")), "closed viewer drops")
}
