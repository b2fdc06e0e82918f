package chats

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/atinyakov/docchat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"json", "json", false},
		{"yaml", "yaml", false},
		{"yml", "yaml", false},
		{"md", "md", false},
		{"markdown", "md", false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := NewExporter(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, e.Extension())
		})
	}
}

func TestJSONExporter(t *testing.T) {
	c := chat("a")
	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(c, &buf))

	var got models.Chat
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, c, got)
	assert.Contains(t, buf.String(), `"fileName": "a.pdf"`)
}

func TestYAMLExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLExporter{}).Export(chat("a"), &buf))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "a.pdf", got["file_name"])
	assert.Len(t, got["messages"], 1)
}

func TestMarkdownExporter(t *testing.T) {
	c := chat("a")
	c.Messages = append(c.Messages, models.Message{
		ID:      "m2",
		Content: "use **bold**\n```\nkeep **this**\n```",
		Sender:  models.SenderAI,
	})

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownExporter{}).Export(c, &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Chat a\n"))
	assert.Contains(t, out, "**Messages:** 2")
	assert.Contains(t, out, `use \*\*bold\*\*`)
	assert.Contains(t, out, "keep **this**")
	assert.Equal(t, 2, strings.Count(out, "---\n\n"))
}
