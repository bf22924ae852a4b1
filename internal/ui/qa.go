package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"docdeck/internal/api"
	"docdeck/internal/chat"
	"docdeck/internal/config"
	"docdeck/internal/export"
	"docdeck/internal/highlight"
)

const backendUnreachableMessage = "Error: Could not connect to the backend. Please check that the server is running."

func (m Model) updateQA(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.searchMode {
		switch msg.String() {
		case "esc":
			m.searchMode = false
			m.searchQuery = ""
			m.search.SetValue("")
			m.search.Blur()
			m.applySearch(false)
			return m, nil
		case "enter":
			m.searchMode = false
			m.search.Blur()
			m.searchQuery = strings.TrimSpace(m.search.Value())
			m.applySearch(false)
			if len(m.matchLines) > 0 {
				m.matchIndex = 0
				m.chatView.SetYOffset(m.clampOffset(m.matchLines[0]))
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	if m.renaming {
		switch msg.String() {
		case "esc":
			m.renaming = false
			m.renameInput.Blur()
			return m, nil
		case "enter":
			m.renaming = false
			m.renameInput.Blur()
			return m, m.commitRename(m.renameInput.Value())
		}
		var cmd tea.Cmd
		m.renameInput, cmd = m.renameInput.Update(msg)
		return m, cmd
	}

	if m.input.Focused() {
		switch msg.String() {
		case "esc":
			m.input.Blur()
			return m, nil
		case "enter":
			return m, m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		m.focusOnList = !m.focusOnList
		return m, nil
	case key.Matches(msg, m.keys.Input):
		m.focusOnList = false
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.search.SetValue(m.searchQuery)
		m.search.CursorEnd()
		m.search.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.NewChat):
		sess := m.store.NewSession("")
		m.refreshSessionItems()
		m.renderConversation(true)
		return m, m.createSessionCmd(sess, "")
	case key.Matches(msg, m.keys.Delete):
		if id := m.selectedSessionID(); id != "" {
			m.confirm = confirmDeleteSession
			m.confirmTarget = id
		}
		return m, nil
	case key.Matches(msg, m.keys.Rename):
		if session, ok := m.store.Active(); ok {
			m.renaming = true
			m.renameInput.SetValue(session.Title)
			m.renameInput.CursorEnd()
			m.renameInput.Focus()
			return m, textinput.Blink
		}
		return m, nil
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyAnswerCmd()
	case key.Matches(msg, m.keys.CycleModel):
		if len(m.cfg.Models) > 0 {
			m.modelIdx = (m.modelIdx + 1) % len(m.cfg.Models)
		}
		return m, nil
	case key.Matches(msg, m.keys.CycleFilter):
		m.filterIdx = (m.filterIdx + 1) % (len(m.documents) + 1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		if !m.focusOnList {
			m.chatView.HalfViewUp()
		}
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		if !m.focusOnList {
			m.chatView.HalfViewDown()
		}
		return m, nil
	case key.Matches(msg, m.keys.NextMatch):
		if !m.focusOnList {
			m.jumpToMatch(1)
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevMatch):
		if !m.focusOnList {
			m.jumpToMatch(-1)
		}
		return m, nil
	}

	if m.focusOnList {
		prev := m.selectedSessionID()
		var cmd tea.Cmd
		m.sessionList, cmd = m.sessionList.Update(msg)
		cmds = append(cmds, cmd)
		if id := m.selectedSessionID(); id != prev && m.store.SetActive(id) {
			m.renderConversation(true)
			cmds = append(cmds, m.loadMessagesCmd(id))
		}
	} else {
		switch msg.String() {
		case "up", "k":
			m.chatView.LineUp(1)
		case "down", "j":
			m.chatView.LineDown(1)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) selectedSessionID() string {
	item, ok := m.sessionList.SelectedItem().(sessionItem)
	if !ok {
		return ""
	}
	return item.s.ID
}

// submit runs the query state machine entry. A submission is rejected while
// a query is in flight or when the trimmed input is empty; when no session is
// active one is created first and its persistence awaited, because the query
// call needs a durable session id.
func (m *Model) submit() tea.Cmd {
	if m.awaiting {
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	if m.store.ActiveID() == "" {
		sess := m.store.NewSession(chat.DeriveTitle(text))
		m.refreshSessionItems()
		m.awaiting = true
		m.inflightID = sess.ID
		return tea.Batch(m.spinner.Tick, m.createSessionCmd(sess, text))
	}
	return m.beginQuery(text, false)
}

// beginQuery appends the optimistic user message and issues the backend
// call. isNew suppresses the first-message auto-rename for sessions whose
// title was already derived from the query at creation time.
func (m *Model) beginQuery(text string, isNew bool) tea.Cmd {
	sessionID := m.store.ActiveID()
	firstMessage := len(m.store.Timeline()) == 0

	m.store.Append(api.Message{Role: api.RoleUser, Content: text})
	m.input.SetValue("")
	m.awaiting = true
	m.inflightID = sessionID
	m.renderConversation(true)

	cmds := []tea.Cmd{m.spinner.Tick}
	if !isNew && firstMessage && m.store.TitleFor(sessionID) == chat.DefaultTitle {
		title := chat.DeriveTitle(text)
		if m.store.Rename(sessionID, title) {
			m.refreshSessionItems()
			// Fire-and-forget: the local title sticks either way.
			cmds = append(cmds, m.renameSessionCmd(sessionID, title))
		}
	}
	cmds = append(cmds, m.queryCmd(text, sessionID, m.selectedModel(), m.targetDocument()))
	return tea.Batch(cmds...)
}

func (m Model) handleSessionCreated(msg sessionCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Error("session create failed", zap.String("session", msg.sessionID), zap.Error(msg.err))
		if msg.pendingQuery != "" {
			// The query cannot proceed without a persisted session.
			if msg.sessionID == m.inflightID {
				m.awaiting = false
				m.inflightID = ""
			}
			m.notice = "Failed to initialize the chat session."
			return m, nil
		}
		m.status = "Conversation could not be saved to the backend"
		return m, nil
	}
	if msg.pendingQuery != "" {
		if msg.sessionID != m.store.ActiveID() {
			// The user switched away before the session persisted; the
			// pending query is dropped, so nothing else will clear the
			// in-flight state.
			m.log.Info("dropped pending query for inactive session", zap.String("session", msg.sessionID))
			if msg.sessionID == m.inflightID {
				m.awaiting = false
				m.inflightID = ""
			}
			return m, nil
		}
		return m, m.beginQuery(msg.pendingQuery, true)
	}
	return m, nil
}

func (m Model) handleQueryDone(msg queryDoneMsg) (tea.Model, tea.Cmd) {
	if msg.sessionID == m.inflightID {
		m.awaiting = false
		m.inflightID = ""
	}
	if msg.sessionID != m.store.ActiveID() {
		// The user switched away mid-flight; dropping beats appending the
		// reply to the wrong timeline.
		m.log.Info("discarded reply for inactive session", zap.String("session", msg.sessionID))
		return m, nil
	}

	if msg.err != nil {
		m.log.Error("query failed", zap.String("session", msg.sessionID), zap.Error(msg.err))
		m.store.Append(api.Message{Role: api.RoleAssistant, Content: backendUnreachableMessage})
	} else {
		m.store.Append(api.Message{
			Role:           api.RoleAssistant,
			Content:        msg.resp.Answer,
			Sources:        msg.resp.Sources,
			GenerationTime: msg.resp.GenerationTime,
		})
	}
	m.renderConversation(true)
	return m, nil
}

func (m *Model) commitRename(title string) tea.Cmd {
	id := m.store.ActiveID()
	if id == "" || !m.store.Rename(id, title) {
		return nil
	}
	m.refreshSessionItems()
	return m.renameSessionCmd(id, strings.TrimSpace(title))
}

// renderConversation rebuilds the chat viewport from the active timeline.
// The markdown body is shared with the exporter, so the screen and the
// exported file always agree.
func (m *Model) renderConversation(gotoBottom bool) {
	if m.store.ActiveID() == "" {
		m.rendered = "No conversation selected.\n\nPress N for a new chat, or just start typing with i."
		m.applySearch(false)
		return
	}
	msgs := m.store.Timeline()
	if len(msgs) == 0 {
		m.rendered = "No messages yet. Ask a question about your documents."
		m.applySearch(false)
		return
	}

	md := export.BuildConversationMarkdown(msgs)
	wrap := m.chatView.Width - 2
	if wrap < 20 {
		wrap = 20
	}

	rendered := md
	if r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(config.DefaultGlamourStyle),
		glamour.WithWordWrap(wrap),
	); err == nil {
		if out, renderErr := r.Render(md); renderErr == nil {
			rendered = out
		}
	}
	m.rendered = rendered
	m.applySearch(gotoBottom)
}

func (m *Model) applySearch(gotoBottom bool) {
	content := m.rendered
	query := strings.TrimSpace(m.searchQuery)
	if query != "" {
		res := highlight.ApplyANSI(m.rendered, query, func(s string) string {
			return searchMatchStyle.Render(s)
		})
		content = res.Text
		m.matchCount = res.Count
		m.matchLines = append(m.matchLines[:0], res.LineIndex...)
		if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
			m.matchIndex = 0
		}
		if res.Count == 0 {
			m.matchIndex = -1
		}
	} else {
		m.matchLines = nil
		m.matchCount = 0
		m.matchIndex = -1
	}

	m.chatView.SetContent(content)
	if gotoBottom {
		m.chatView.GotoBottom()
	}
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		m.status = "No search matches in conversation"
		return
	}
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	} else {
		m.matchIndex = (m.matchIndex + delta + len(m.matchLines)) % len(m.matchLines)
	}
	m.chatView.SetYOffset(m.clampOffset(m.matchLines[m.matchIndex]))
}

func (m *Model) clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.chatView.TotalLineCount() - m.chatView.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func (m Model) viewQA() string {
	left, right := m.paneWidths()
	bodyHeight := m.height - 4
	if bodyHeight < 8 {
		bodyHeight = 8
	}

	leftPane := panelStyle(m.focusOnList).Width(left).Height(bodyHeight).Render(m.sessionList.View())

	inputLine := m.input.View()
	if m.awaiting {
		inputLine = m.spinner.View() + " waiting for answer..."
	}
	rightBody := lipgloss.JoinVertical(lipgloss.Left, m.chatView.View(), "", inputLine)
	rightPane := panelStyle(!m.focusOnList).Width(right).Height(bodyHeight).Render(rightBody)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
}
