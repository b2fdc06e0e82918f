package chats

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/docchat/internal/models"
	"gopkg.in/yaml.v3"
)

// Exporter writes a chat transcript in a specific format.
type Exporter interface {
	Export(chat models.Chat, w io.Writer) error
	Extension() string
}

// NewExporter creates an exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}

// JSONExporter exports chats as indented JSON.
type JSONExporter struct{}

func (e *JSONExporter) Export(chat models.Chat, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(chat)
}

func (e *JSONExporter) Extension() string { return "json" }

// YAMLExporter exports chats as YAML.
type YAMLExporter struct{}

func (e *YAMLExporter) Export(chat models.Chat, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(chat)
}

func (e *YAMLExporter) Extension() string { return "yaml" }

// MarkdownExporter exports a readable transcript.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(chat models.Chat, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", chat.Title)
	_, _ = fmt.Fprintf(w, "**Document:** %s (%s)  \n", chat.FileName, chat.FileType)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(chat.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range chat.Messages {
		_, _ = fmt.Fprintf(w, "**%s** (%s)\n\n%s\n\n",
			msg.Sender, msg.Timestamp.Format("2006-01-02 15:04:05"), escapeMarkdown(msg.Content))
		if i < len(chat.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

func (e *MarkdownExporter) Extension() string { return "md" }

// escapeMarkdown escapes emphasis markers outside fenced code blocks.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCode := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
	}
	return strings.Join(lines, "\n")
}
