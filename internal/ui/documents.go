package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"docdeck/internal/api"
	"docdeck/internal/ingest"
)

func (m Model) updateDocuments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showPicker {
		if msg.String() == "esc" {
			m.showPicker = false
			return m, nil
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		if ok, path := m.picker.DidSelectFile(msg); ok {
			m.stageFile(path)
			m.showPicker = false
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.AddFile):
		if m.tracker.Busy() {
			m.status = "Ingestion in progress"
			return m, nil
		}
		m.showPicker = true
		return m, m.picker.Init()
	case key.Matches(msg, m.keys.Upload):
		return m, m.startIngestion()
	case key.Matches(msg, m.keys.Sync):
		return m, m.startResync()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadDocumentsCmd()
	case key.Matches(msg, m.keys.Delete):
		if len(m.documents) > 0 {
			m.confirm = confirmDeleteDocument
			m.confirmTarget = m.documents[m.docCursor].Name
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.docCursor > 0 {
			m.docCursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.docCursor < len(m.documents)-1 {
			m.docCursor++
		}
		return m, nil
	case msg.String() == "backspace":
		if len(m.staged) > 0 && !m.tracker.Busy() {
			m.staged = m.staged[:len(m.staged)-1]
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) stageFile(path string) {
	for _, p := range m.staged {
		if p == path {
			return
		}
	}
	m.staged = append(m.staged, path)
}

// startIngestion enters the staged pipeline: the tracker rejects a second
// run while one is active, which keeps the upload affordance disabled.
func (m *Model) startIngestion() tea.Cmd {
	if len(m.staged) == 0 {
		m.status = "No files staged; press a to add one"
		return nil
	}
	if err := m.tracker.Start(m.staged); err != nil {
		m.status = err.Error()
		return nil
	}
	return m.uploadCmd(m.staged)
}

// startResync reindexes the knowledge base without uploading new files.
func (m *Model) startResync() tea.Cmd {
	if err := m.tracker.StartResync(); err != nil {
		m.status = err.Error()
		return nil
	}
	return m.reindexCmd()
}

func (m Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Error("upload failed", zap.Error(msg.err))
		m.tracker.Fail()
		m.notice = "Upload failed. No documents were indexed."
		return m, nil
	}

	m.staged = nil
	m.status = msg.result.Message
	m.tracker.AdvanceTo(ingest.StageChunk)

	// The backend reports neither chunking nor header/embedding progress;
	// the middle stages run on display timers measured from this point.
	d := m.tracker.Delays()
	return m, tea.Batch(
		stageTickCmd(d.Headers, ingest.StageHeaders),
		stageTickCmd(d.Embeddings, ingest.StageEmbed),
	)
}

func (m Model) handleReindexDone(msg reindexDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Error("reindex failed", zap.Error(msg.err))
		m.tracker.Fail()
		m.notice = "Indexing failed. The knowledge base was not updated."
		return m, nil
	}
	m.tracker.AdvanceTo(ingest.StageFinalize)
	return m, tea.Batch(
		m.loadDocumentsCmd(),
		ingestResetCmd(m.tracker.Delays().Reset),
	)
}

func (m Model) viewDocuments() string {
	bodyHeight := m.height - 4
	if bodyHeight < 8 {
		bodyHeight = 8
	}
	width := m.width - 4

	if m.showPicker {
		header := tableHeaderStyle.Render("Select a file to stage (.pdf, .txt, .md)")
		body := lipgloss.JoinVertical(lipgloss.Left, header, "", m.picker.View())
		return panelStyle(true).Width(width).Height(bodyHeight).Render(body)
	}

	var sections []string

	staged := "staged: none (a to add)"
	if len(m.staged) > 0 {
		names := make([]string, len(m.staged))
		for i, p := range m.staged {
			names[i] = baseName(p)
		}
		staged = fmt.Sprintf("staged: %s  (u to upload)", strings.Join(names, ", "))
	}
	sections = append(sections, staged)

	if m.tracker.Stage() != ingest.StageIdle {
		sections = append(sections, "", m.viewPipeline())
	}

	sections = append(sections, "", m.viewDocumentTable(width-4))

	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return panelStyle(true).Width(width).Height(bodyHeight).Render(body)
}

func (m Model) viewPipeline() string {
	current := m.tracker.Stage()
	lines := []string{tableHeaderStyle.Render("Processing Pipeline")}
	for _, stage := range ingest.Stages() {
		var line string
		switch {
		case stage < current:
			line = stageDoneStyle.Render("  [x] " + stage.Label())
		case stage == current:
			line = stageActiveStyle.Render("  [>] " + stage.Label())
		default:
			line = stagePendingStyle.Render("  [ ] " + stage.Label())
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewDocumentTable(width int) string {
	if width < 40 {
		width = 40
	}
	nameW := width - 34
	if nameW < 16 {
		nameW = 16
	}

	header := fmt.Sprintf("%-*s  %10s  %-16s  %s", nameW, "NAME", "SIZE", "UPLOADED", "STATUS")
	lines := []string{tableHeaderStyle.Render(header)}

	if len(m.documents) == 0 {
		lines = append(lines, stagePendingStyle.Render("No documents in the knowledge base."))
		return strings.Join(lines, "\n")
	}

	for i, doc := range m.documents {
		status := doc.Status
		if status == "" {
			status = api.DocIndexed
		}
		row := fmt.Sprintf("%-*s  %10s  %-16s  %s", nameW, shorten(doc.Name, nameW), doc.Size, doc.Date, status)
		if i == m.docCursor {
			row = tableSelectedStyle.Render(row)
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
