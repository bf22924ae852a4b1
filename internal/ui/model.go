package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"docdeck/internal/api"
	"docdeck/internal/chat"
	"docdeck/internal/config"
	"docdeck/internal/export"
	"docdeck/internal/ingest"
)

type page int

const (
	pageDashboard page = iota
	pageDocuments
	pageQA
)

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmDeleteSession
	confirmDeleteDocument
)

type Model struct {
	cfg      config.AppConfig
	backend  Backend
	store    *chat.Store
	tracker  *ingest.Tracker
	exporter *export.Exporter
	log      *zap.Logger

	page   page
	width  int
	height int
	keys   keyMap
	help   help.Model
	status string
	err    error

	// Q&A view
	sessionList list.Model
	chatView    viewport.Model
	input       textinput.Model
	renameInput textinput.Model
	search      textinput.Model
	spinner     spinner.Model

	focusOnList bool
	renaming    bool
	searchMode  bool
	searchQuery string
	rendered    string
	matchLines  []int
	matchCount  int
	matchIndex  int

	awaiting   bool
	inflightID string

	modelIdx  int
	filterIdx int // 0 means all documents

	// Documents view
	documents  []api.Document
	docCursor  int
	staged     []string
	picker     filepicker.Model
	showPicker bool

	// Dashboard view
	sysStatus    api.SystemStatus
	statusLoaded bool

	// Modal overlays
	notice        string
	confirm       confirmKind
	confirmTarget string
}

type sessionItem struct {
	s api.Session
}

func (i sessionItem) Title() string       { return shorten(i.s.Title, 28) }
func (i sessionItem) Description() string { return i.s.Date }
func (i sessionItem) FilterValue() string {
	return strings.ToLower(i.s.Title + " " + i.s.Date)
}

func NewModel(cfg config.AppConfig, backend Backend, store *chat.Store, tracker *ingest.Tracker, exp *export.Exporter, log *zap.Logger) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 36, 20)
	l.Title = "Conversations"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)
	vp.SetContent("Loading conversations...")

	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.Prompt = "> "
	ti.CharLimit = 2000

	ri := textinput.New()
	ri.Prompt = "rename: "
	ri.CharLimit = 120

	si := textinput.New()
	si.Placeholder = "Search in conversation..."
	si.Prompt = "/ "
	si.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Points

	fp := filepicker.New()
	fp.AllowedTypes = []string{".pdf", ".txt", ".md"}

	return Model{
		cfg:         cfg,
		backend:     backend,
		store:       store,
		tracker:     tracker,
		exporter:    exp,
		log:         log,
		page:        pageQA,
		keys:        defaultKeys(),
		help:        help.New(),
		sessionList: l,
		chatView:    vp,
		input:       ti,
		renameInput: ri,
		search:      si,
		spinner:     sp,
		picker:      fp,
		matchIndex:  -1,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSessionsCmd(),
		m.loadDocumentsCmd(),
		m.loadStatusCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderConversation(false)
		return m, nil

	case sessionsMsg:
		if msg.err != nil {
			m.log.Warn("session list load failed", zap.Error(msg.err))
			break
		}
		m.store.Replace(msg.sessions)
		m.refreshSessionItems()
		if id := m.store.ActiveID(); id != "" {
			cmds = append(cmds, m.loadMessagesCmd(id))
		}

	case messagesMsg:
		if msg.err != nil {
			m.log.Warn("timeline load failed", zap.String("session", msg.sessionID), zap.Error(msg.err))
			break
		}
		if msg.sessionID == m.store.ActiveID() {
			m.store.SetTimeline(msg.msgs)
			m.renderConversation(true)
		}

	case sessionCreatedMsg:
		return m.handleSessionCreated(msg)

	case sessionDeletedMsg:
		if msg.err != nil {
			m.log.Error("session delete failed", zap.String("session", msg.sessionID), zap.Error(msg.err))
			m.notice = "Failed to delete the conversation."
			break
		}
		active := m.store.Remove(msg.sessionID)
		m.refreshSessionItems()
		if active != "" {
			cmds = append(cmds, m.loadMessagesCmd(active))
		}
		m.renderConversation(true)

	case sessionRenamedMsg:
		// Local title is already updated; a failed rename only loses
		// durability, which the next load will reveal.
		if msg.err != nil {
			m.log.Warn("session rename failed", zap.String("session", msg.sessionID), zap.Error(msg.err))
		}

	case queryDoneMsg:
		return m.handleQueryDone(msg)

	case documentsMsg:
		if msg.err != nil {
			m.log.Warn("document list load failed", zap.Error(msg.err))
			break
		}
		docs := msg.docs
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].Timestamp > docs[j].Timestamp
		})
		m.documents = docs
		if m.docCursor >= len(docs) {
			m.docCursor = len(docs) - 1
		}
		if m.docCursor < 0 {
			m.docCursor = 0
		}
		if m.filterIdx > len(docs) {
			m.filterIdx = 0
		}

	case documentDeletedMsg:
		if msg.err != nil {
			m.log.Error("document delete failed", zap.String("document", msg.name), zap.Error(msg.err))
			m.notice = fmt.Sprintf("Failed to delete %q.", msg.name)
			break
		}
		m.status = "Deleted " + msg.name
		cmds = append(cmds, m.loadDocumentsCmd())

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case stageTickMsg:
		if m.tracker.AdvanceTo(msg.target) && msg.target == ingest.StageEmbed {
			cmds = append(cmds, m.reindexCmd())
		}

	case reindexDoneMsg:
		return m.handleReindexDone(msg)

	case ingestResetMsg:
		// A new run may have started during the finalize window; its stages
		// must not be clobbered by the previous run's reset tick.
		if m.tracker.Stage() == ingest.StageFinalize {
			m.tracker.Reset()
		}

	case statusInfoMsg:
		if msg.err != nil {
			m.log.Warn("status load failed", zap.Error(msg.err))
			break
		}
		m.sysStatus = msg.status
		m.statusLoaded = true

	case exportDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyDoneMsg:
		if msg.err != nil {
			m.status = "Could not copy: " + msg.err.Error()
		} else {
			m.status = "Copied answer to clipboard"
		}

	case spinner.TickMsg:
		if m.awaiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.showPicker {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal overlays swallow all keys.
	if m.notice != "" {
		switch msg.String() {
		case "enter", "esc":
			m.notice = ""
		}
		return m, nil
	}
	if m.confirm != confirmNone {
		return m.handleConfirmKey(msg)
	}

	typing := m.input.Focused() || m.renameInput.Focused() || m.searchMode || m.showPicker

	if !typing {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Dashboard):
			m.page = pageDashboard
			return m, m.loadStatusCmd()
		case key.Matches(msg, m.keys.Documents):
			m.page = pageDocuments
			return m, m.loadDocumentsCmd()
		case key.Matches(msg, m.keys.QA):
			m.page = pageQA
			return m, nil
		}
	}

	switch m.page {
	case pageQA:
		return m.updateQA(msg)
	case pageDocuments:
		return m.updateDocuments(msg)
	default:
		if msg.String() == "R" {
			return m, m.loadStatusCmd()
		}
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		kind, target := m.confirm, m.confirmTarget
		m.confirm, m.confirmTarget = confirmNone, ""
		switch kind {
		case confirmDeleteSession:
			return m, m.deleteSessionCmd(target)
		case confirmDeleteDocument:
			return m, m.deleteDocumentCmd(target)
		}
	case "n", "esc":
		m.confirm, m.confirmTarget = confirmNone, ""
	}
	return m, nil
}

func (m *Model) refreshSessionItems() {
	sessions := m.store.Sessions()
	items := make([]list.Item, 0, len(sessions))
	selectIdx := 0
	for idx, s := range sessions {
		items = append(items, sessionItem{s: s})
		if s.ID == m.store.ActiveID() {
			selectIdx = idx
		}
	}
	m.sessionList.SetItems(items)
	if len(items) > 0 {
		m.sessionList.Select(selectIdx)
	}
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()

	bodyHeight := m.height - 4
	if bodyHeight < 8 {
		bodyHeight = 8
	}

	m.sessionList.SetSize(left-2, bodyHeight-2)
	m.chatView.Width = right - 2
	m.chatView.Height = bodyHeight - 5
	m.input.Width = right - 6
	m.picker.Height = bodyHeight - 4
}

func (m *Model) paneWidths() (int, int) {
	left := m.width / 4
	if left < 28 {
		left = 28
	}
	if left > m.width-40 {
		left = m.width - 40
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left - 1
	if right < 20 {
		right = 20
	}
	return left, right
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	var body string
	switch m.page {
	case pageDashboard:
		body = m.viewDashboard()
	case pageDocuments:
		body = m.viewDocuments()
	default:
		body = m.viewQA()
	}

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.tabBar(),
		body,
		m.bottomBar(),
	)

	if m.notice != "" {
		return m.overlay(noticeStyle.Render(m.notice + "\n\npress enter to dismiss"))
	}
	if m.confirm != confirmNone {
		return m.overlay(confirmStyle.Render(m.confirmPrompt() + "  [y/n]"))
	}
	return view
}

func (m Model) confirmPrompt() string {
	switch m.confirm {
	case confirmDeleteSession:
		return "Delete this conversation? " + shorten(m.store.TitleFor(m.confirmTarget), 40)
	case confirmDeleteDocument:
		return fmt.Sprintf("Delete %q from the knowledge base?", m.confirmTarget)
	}
	return ""
}

func (m Model) overlay(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) tabBar() string {
	names := []string{"1 Dashboard", "2 Documents", "3 Q&A"}
	parts := make([]string, 0, len(names))
	for i, name := range names {
		if page(i) == m.page {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) bottomBar() string {
	helpView := m.help.View(m.keys)
	if m.searchMode {
		helpView = m.search.View() + "  " + helpView
	} else if m.renaming {
		helpView = m.renameInput.View() + "  " + helpView
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.statusLine(), helpView)
}

func (m Model) statusLine() string {
	var parts []string

	if session, ok := m.store.Active(); ok {
		parts = append(parts, "chat="+shorten(session.Title, 24))
	}
	parts = append(parts, "model="+m.selectedModel())
	if doc := m.targetDocument(); doc != "" {
		parts = append(parts, "doc="+shorten(doc, 20))
	}
	if m.awaiting {
		parts = append(parts, m.spinner.View()+" thinking")
	}
	if m.tracker.Stage() != ingest.StageIdle {
		parts = append(parts, fmt.Sprintf("ingest %d/5", int(m.tracker.Stage())))
	}
	if m.searchQuery != "" {
		if m.matchCount > 0 {
			parts = append(parts, fmt.Sprintf("match %d/%d", m.matchIndex+1, m.matchCount))
		} else {
			parts = append(parts, "match 0")
		}
	}
	if strings.TrimSpace(m.status) != "" {
		parts = append(parts, strings.TrimSpace(m.status))
	}
	if m.err != nil {
		parts = append(parts, "err="+m.err.Error())
	}

	line := strings.Join(parts, "  ")
	if m.width > 4 {
		line = ansi.Truncate(line, m.width-2, "...")
	}
	return statusStyle.Render(line)
}

func (m Model) selectedModel() string {
	if len(m.cfg.Models) == 0 {
		return ""
	}
	return m.cfg.Models[m.modelIdx%len(m.cfg.Models)]
}

// targetDocument resolves the document filter; empty string means the query
// runs against the whole knowledge base.
func (m Model) targetDocument() string {
	if m.filterIdx <= 0 || m.filterIdx > len(m.documents) {
		return ""
	}
	return m.documents[m.filterIdx-1].Name
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
