package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docdeck/internal/api"
)

// Exporter writes conversation transcripts as markdown files.
type Exporter struct {
	overrideDir string
	cwd         string
}

func New(overrideDir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd}, nil
}

func (e *Exporter) Export(session api.Session, messages []api.Message) (string, error) {
	path := e.outputPath(session)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	body := BuildConversationMarkdown(messages)
	md := BuildSessionMarkdown(session, body, time.Now().UTC())
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// BuildConversationMarkdown renders a timeline as markdown. The same output
// backs both the on-screen conversation view and exported files.
func BuildConversationMarkdown(messages []api.Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}

		switch m.Role {
		case api.RoleUser:
			b.WriteString("## You\n\n")
			b.WriteString(content + "\n\n")
		case api.RoleAssistant:
			b.WriteString("## Assistant")
			if m.GenerationTime > 0 {
				b.WriteString(fmt.Sprintf(" _(%.2fs)_", m.GenerationTime))
			}
			b.WriteString("\n\n")
			b.WriteString(content + "\n\n")
			if len(m.Sources) > 0 {
				b.WriteString("> Sources: ")
				for i, src := range m.Sources {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString("`" + src.Document + "` (" + src.PageOrSection + ")")
				}
				b.WriteString("\n\n")
			}
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func BuildSessionMarkdown(session api.Session, transcript string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# " + safeValue(session.Title) + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString("session: " + safeValue(session.ID) + "\n")
	b.WriteString("created: " + safeValue(session.Date) + "\n")
	b.WriteString("```\n\n")
	b.WriteString(transcript)
	if !strings.HasSuffix(transcript, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Exporter) outputPath(session api.Session) string {
	dir := e.overrideDir
	if dir == "" {
		dir = filepath.Join(e.cwd, "docs", "conversations")
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.cwd, dir)
	}

	name := session.Title
	if strings.TrimSpace(name) == "" {
		name = session.ID
	}
	return filepath.Join(dir, safeFileName(name)+".md")
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "conversation"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "?", "_", "*", "_", "\"", "_")
	return replacer.Replace(strings.ToLower(s))
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
