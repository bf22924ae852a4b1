package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"docdeck/internal/api"
	"docdeck/internal/clipboard"
	"docdeck/internal/ingest"
)

// Backend is the slice of the HTTP client the UI consumes. Tests swap it
// for a fake.
type Backend interface {
	ListSessions(ctx context.Context) ([]api.Session, error)
	SessionMessages(ctx context.Context, sessionID string) ([]api.Message, error)
	CreateSession(ctx context.Context, s api.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	RenameSession(ctx context.Context, sessionID, title string) error
	Query(ctx context.Context, req api.QueryRequest) (api.QueryResponse, error)
	ListDocuments(ctx context.Context) ([]api.Document, error)
	DeleteDocument(ctx context.Context, name string) error
	Upload(ctx context.Context, paths []string) (api.UploadResult, error)
	Reindex(ctx context.Context) error
	Status(ctx context.Context) (api.SystemStatus, error)
}

type sessionsMsg struct {
	sessions []api.Session
	err      error
}

type messagesMsg struct {
	sessionID string
	msgs      []api.Message
	err       error
}

// sessionCreatedMsg reports backend persistence of an optimistically created
// session. pendingQuery is non-empty when creation was triggered implicitly
// by the first query, which must wait for the session id to be durable.
type sessionCreatedMsg struct {
	sessionID    string
	pendingQuery string
	err          error
}

type sessionDeletedMsg struct {
	sessionID string
	err       error
}

type sessionRenamedMsg struct {
	sessionID string
	title     string
	err       error
}

// queryDoneMsg carries the session the query was issued for, so replies
// arriving after a session switch can be discarded instead of landing in
// the wrong timeline.
type queryDoneMsg struct {
	sessionID string
	resp      api.QueryResponse
	err       error
}

type documentsMsg struct {
	docs []api.Document
	err  error
}

type documentDeletedMsg struct {
	name string
	err  error
}

type uploadDoneMsg struct {
	result api.UploadResult
	err    error
}

type reindexDoneMsg struct{ err error }

// stageTickMsg advances the ingestion tracker to target when it is next in
// sequence; stale timers are ignored by the tracker.
type stageTickMsg struct{ target ingest.Stage }

type ingestResetMsg struct{}

type statusInfoMsg struct {
	status api.SystemStatus
	err    error
}

type exportDoneMsg struct {
	path string
	err  error
}

type copyDoneMsg struct{ err error }

func (m Model) loadSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.backend.ListSessions(context.Background())
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func (m Model) loadMessagesCmd(sessionID string) tea.Cmd {
	if sessionID == "" {
		return nil
	}
	return func() tea.Msg {
		msgs, err := m.backend.SessionMessages(context.Background(), sessionID)
		return messagesMsg{sessionID: sessionID, msgs: msgs, err: err}
	}
}

func (m Model) createSessionCmd(s api.Session, pendingQuery string) tea.Cmd {
	return func() tea.Msg {
		err := m.backend.CreateSession(context.Background(), s)
		return sessionCreatedMsg{sessionID: s.ID, pendingQuery: pendingQuery, err: err}
	}
}

func (m Model) deleteSessionCmd(sessionID string) tea.Cmd {
	return func() tea.Msg {
		err := m.backend.DeleteSession(context.Background(), sessionID)
		return sessionDeletedMsg{sessionID: sessionID, err: err}
	}
}

func (m Model) renameSessionCmd(sessionID, title string) tea.Cmd {
	return func() tea.Msg {
		err := m.backend.RenameSession(context.Background(), sessionID, title)
		return sessionRenamedMsg{sessionID: sessionID, title: title, err: err}
	}
}

func (m Model) queryCmd(text, sessionID, model, targetDoc string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.backend.Query(context.Background(), api.QueryRequest{
			Query:          text,
			Model:          model,
			SessionID:      sessionID,
			TargetDocument: targetDoc,
		})
		return queryDoneMsg{sessionID: sessionID, resp: resp, err: err}
	}
}

func (m Model) loadDocumentsCmd() tea.Cmd {
	return func() tea.Msg {
		docs, err := m.backend.ListDocuments(context.Background())
		return documentsMsg{docs: docs, err: err}
	}
}

func (m Model) deleteDocumentCmd(name string) tea.Cmd {
	return func() tea.Msg {
		err := m.backend.DeleteDocument(context.Background(), name)
		return documentDeletedMsg{name: name, err: err}
	}
}

func (m Model) uploadCmd(paths []string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.backend.Upload(context.Background(), paths)
		return uploadDoneMsg{result: result, err: err}
	}
}

func (m Model) reindexCmd() tea.Cmd {
	return func() tea.Msg {
		return reindexDoneMsg{err: m.backend.Reindex(context.Background())}
	}
}

func (m Model) loadStatusCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := m.backend.Status(context.Background())
		return statusInfoMsg{status: status, err: err}
	}
}

func stageTickCmd(d time.Duration, target ingest.Stage) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return stageTickMsg{target: target}
	})
}

func ingestResetCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ingestResetMsg{}
	})
}

func (m Model) exportCmd() tea.Cmd {
	session, ok := m.store.Active()
	if !ok {
		return nil
	}
	msgs := m.store.Timeline()
	return func() tea.Msg {
		path, err := m.exporter.Export(session, msgs)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) copyAnswerCmd() tea.Cmd {
	var answer string
	for _, msg := range m.store.Timeline() {
		if msg.Role == api.RoleAssistant {
			answer = msg.Content
		}
	}
	if answer == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyDoneMsg{err: clipboard.Copy(ctx, answer)}
	}
}
