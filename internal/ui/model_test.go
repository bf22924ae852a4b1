package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"docdeck/internal/api"
	"docdeck/internal/chat"
	"docdeck/internal/config"
	"docdeck/internal/export"
	"docdeck/internal/ingest"
)

type stubBackend struct{}

func (stubBackend) ListSessions(context.Context) ([]api.Session, error) { return nil, nil }
func (stubBackend) SessionMessages(context.Context, string) ([]api.Message, error) {
	return nil, nil
}
func (stubBackend) CreateSession(context.Context, api.Session) error    { return nil }
func (stubBackend) DeleteSession(context.Context, string) error         { return nil }
func (stubBackend) RenameSession(context.Context, string, string) error { return nil }
func (stubBackend) Query(context.Context, api.QueryRequest) (api.QueryResponse, error) {
	return api.QueryResponse{}, nil
}
func (stubBackend) ListDocuments(context.Context) ([]api.Document, error) { return nil, nil }
func (stubBackend) DeleteDocument(context.Context, string) error          { return nil }
func (stubBackend) Upload(context.Context, []string) (api.UploadResult, error) {
	return api.UploadResult{}, nil
}
func (stubBackend) Reindex(context.Context) error { return nil }
func (stubBackend) Status(context.Context) (api.SystemStatus, error) {
	return api.SystemStatus{}, nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	exp, err := export.New(t.TempDir())
	if err != nil {
		t.Fatalf("export.New: %v", err)
	}
	m := NewModel(config.Default(), stubBackend{}, chat.NewStore(), ingest.NewTracker(ingest.DefaultDelays()), exp, zap.NewNop())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func submitText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.Focus()
	m.input.SetValue(text)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func TestSubmitAppendsOneUserMessageAndAwaits(t *testing.T) {
	m := newTestModel(t)
	m.store.NewSession("Existing")

	m = submitText(t, m, "What is covered by the warranty?")

	timeline := m.store.Timeline()
	if len(timeline) != 1 {
		t.Fatalf("timeline length = %d, want 1", len(timeline))
	}
	if timeline[0].Role != api.RoleUser || timeline[0].Content != "What is covered by the warranty?" {
		t.Fatalf("unexpected user message: %+v", timeline[0])
	}
	if !m.awaiting {
		t.Fatal("model should be awaiting a response after submit")
	}
	if m.input.Value() != "" {
		t.Fatalf("input should be cleared, got %q", m.input.Value())
	}
}

func TestSubmitWhileAwaitingIsRejected(t *testing.T) {
	m := newTestModel(t)
	m.store.NewSession("Existing")
	m = submitText(t, m, "first question")

	m = submitText(t, m, "second question")

	if got := len(m.store.Timeline()); got != 1 {
		t.Fatalf("in-flight submit should be a no-op, timeline length = %d", got)
	}
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	m := newTestModel(t)
	m.store.NewSession("Existing")

	m = submitText(t, m, "   \t ")

	if len(m.store.Timeline()) != 0 {
		t.Fatal("whitespace-only input must not produce a message")
	}
	if m.awaiting {
		t.Fatal("blank submit must not enter awaiting state")
	}
}

func TestSubmitWithoutSessionCreatesOneWithDerivedTitle(t *testing.T) {
	m := newTestModel(t)
	query := "What is the refund policy for enterprise customers?"

	m = submitText(t, m, query)

	sessions := m.store.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("session count = %d, want 1", len(sessions))
	}
	title := sessions[0].Title
	if len([]rune(title)) > chat.TitleLimit {
		t.Fatalf("title %q exceeds %d runes", title, chat.TitleLimit)
	}
	if !strings.HasPrefix(query, title) {
		t.Fatalf("title %q is not a prefix of the query", title)
	}
	if !m.awaiting {
		t.Fatal("model should be awaiting while the session is persisted")
	}

	// Persistence confirmed: the pending query is now issued against the
	// new session, appearing as the only user message.
	next, _ := m.Update(sessionCreatedMsg{sessionID: sessions[0].ID, pendingQuery: query})
	m = next.(Model)
	timeline := m.store.Timeline()
	if len(timeline) != 1 || timeline[0].Role != api.RoleUser {
		t.Fatalf("expected single user message after creation, got %+v", timeline)
	}
}

func TestSessionCreationFailureAbortsPendingQuery(t *testing.T) {
	m := newTestModel(t)
	m = submitText(t, m, "hello")
	id := m.store.ActiveID()

	next, _ := m.Update(sessionCreatedMsg{sessionID: id, pendingQuery: "hello", err: errors.New("boom")})
	m = next.(Model)

	if m.awaiting {
		t.Fatal("awaiting must clear when session creation fails")
	}
	if m.notice == "" {
		t.Fatal("a blocking notice should report the failed initialization")
	}
	if len(m.store.Timeline()) != 0 {
		t.Fatal("no message should be appended for the aborted query")
	}
}

func TestQuerySuccessAppendsAssistantReply(t *testing.T) {
	m := newTestModel(t)
	m.store.NewSession("Existing")
	m = submitText(t, m, "What does the contract say about termination?")

	resp := api.QueryResponse{
		Answer:         "Thirty days written notice.",
		Sources:        []api.Source{{Document: "contract.pdf", PageOrSection: "page 4"}},
		GenerationTime: 1.25,
	}
	next, _ := m.Update(queryDoneMsg{sessionID: m.store.ActiveID(), resp: resp})
	m = next.(Model)

	if m.awaiting {
		t.Fatal("awaiting must clear on reply")
	}
	timeline := m.store.Timeline()
	if len(timeline) != 2 {
		t.Fatalf("timeline length = %d, want 2", len(timeline))
	}
	got := timeline[1]
	if got.Role != api.RoleAssistant || got.Content != resp.Answer {
		t.Fatalf("unexpected assistant message: %+v", got)
	}
	if len(got.Sources) != 1 || got.Sources[0].Document != "contract.pdf" {
		t.Fatalf("sources not carried over: %+v", got.Sources)
	}
	if got.GenerationTime != 1.25 {
		t.Fatalf("generation time = %v, want 1.25", got.GenerationTime)
	}
}

func TestQueryFailureAppendsUnreachableMessage(t *testing.T) {
	m := newTestModel(t)
	m.store.NewSession("Existing")
	m = submitText(t, m, "anything")

	next, _ := m.Update(queryDoneMsg{sessionID: m.store.ActiveID(), err: errors.New("connection refused")})
	m = next.(Model)

	timeline := m.store.Timeline()
	if len(timeline) != 2 {
		t.Fatalf("timeline length = %d, want 2", len(timeline))
	}
	if timeline[1].Role != api.RoleAssistant || timeline[1].Content != backendUnreachableMessage {
		t.Fatalf("unexpected failure message: %+v", timeline[1])
	}
	if m.awaiting {
		t.Fatal("awaiting must clear even on failure")
	}
}

func TestLateReplyForSwitchedSessionIsDiscarded(t *testing.T) {
	m := newTestModel(t)
	first := m.store.NewSession("First")
	m = submitText(t, m, "question for first")

	second := m.store.NewSession("Second")
	if m.store.ActiveID() != second.ID {
		t.Fatalf("active session = %q, want %q", m.store.ActiveID(), second.ID)
	}

	next, _ := m.Update(queryDoneMsg{sessionID: first.ID, resp: api.QueryResponse{Answer: "late"}})
	m = next.(Model)

	if len(m.store.Timeline()) != 0 {
		t.Fatalf("late reply must not land in the new session, timeline = %+v", m.store.Timeline())
	}
	if m.awaiting {
		t.Fatal("awaiting must clear when the tagged reply arrives")
	}
}

func TestSwitchAwayDuringImplicitCreateClearsAwaiting(t *testing.T) {
	m := newTestModel(t)
	m = submitText(t, m, "question for the brand-new session")
	created := m.store.ActiveID()
	if !m.awaiting {
		t.Fatal("model should be awaiting while the session is persisted")
	}

	// Switch to another session before the create call resolves. The
	// pending query is dropped, so nothing else would clear the flag.
	m.store.NewSession("Other")

	next, _ := m.Update(sessionCreatedMsg{sessionID: created, pendingQuery: "question for the brand-new session"})
	m = next.(Model)

	if m.awaiting {
		t.Fatal("awaiting must clear when the pending query is dropped")
	}
	if m.inflightID != "" {
		t.Fatalf("inflight id = %q, want empty", m.inflightID)
	}
	if len(m.store.Timeline()) != 0 {
		t.Fatalf("dropped query must not land in the active session, timeline = %+v", m.store.Timeline())
	}

	// The orchestrator must accept a new submission afterwards.
	m = submitText(t, m, "follow-up in the other session")
	if got := len(m.store.Timeline()); got != 1 {
		t.Fatalf("timeline length after recovery = %d, want 1", got)
	}
}

func TestResetTickSparesRunStartedDuringFinalize(t *testing.T) {
	m := newTestModel(t)
	if err := m.tracker.Start([]string{"a.pdf"}); err != nil {
		t.Fatalf("tracker start: %v", err)
	}
	next, _ := m.Update(uploadDoneMsg{result: api.UploadResult{Message: "ok"}})
	m = next.(Model)
	next, _ = m.Update(stageTickMsg{target: ingest.StageHeaders})
	m = next.(Model)
	next, _ = m.Update(stageTickMsg{target: ingest.StageEmbed})
	m = next.(Model)
	next, _ = m.Update(reindexDoneMsg{})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageFinalize {
		t.Fatalf("first run stage = %v, want finalize", got)
	}

	// Finalize is not busy, so a second run may start before the reset
	// tick from the first run lands.
	if err := m.tracker.Start([]string{"b.pdf"}); err != nil {
		t.Fatalf("second run start: %v", err)
	}

	next, _ = m.Update(ingestResetMsg{})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageUpload {
		t.Fatalf("stage after stale reset tick = %v, want upload", got)
	}

	// The second run still walks its stages and ends with its own reset.
	next, _ = m.Update(uploadDoneMsg{result: api.UploadResult{Message: "ok"}})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageChunk {
		t.Fatalf("second run stage after upload = %v, want chunk", got)
	}
}

func TestShortenKeepsMultibyteTitlesValid(t *testing.T) {
	in := "résumé überprüfung für löschanträge"
	got := shorten(in, 10)
	if len([]rune(got)) != 10 {
		t.Fatalf("shortened length = %d runes, want 10", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("shortened value %q should end with ellipsis", got)
	}
	if !strings.HasPrefix(in, strings.TrimSuffix(got, "...")) {
		t.Fatalf("shortened value %q is not a prefix of the input", got)
	}
}

func TestIngestionRunWalksAllStages(t *testing.T) {
	m := newTestModel(t)
	if err := m.tracker.Start([]string{"report.pdf"}); err != nil {
		t.Fatalf("tracker start: %v", err)
	}

	next, _ := m.Update(uploadDoneMsg{result: api.UploadResult{Message: "ok"}})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageChunk {
		t.Fatalf("stage after upload = %v, want chunk", got)
	}

	next, _ = m.Update(stageTickMsg{target: ingest.StageHeaders})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageHeaders {
		t.Fatalf("stage after header tick = %v, want headers", got)
	}

	next, cmd := m.Update(stageTickMsg{target: ingest.StageEmbed})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageEmbed {
		t.Fatalf("stage after embed tick = %v, want embed", got)
	}
	if cmd == nil {
		t.Fatal("reaching the embedding stage must trigger the reindex call")
	}

	next, _ = m.Update(reindexDoneMsg{})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageFinalize {
		t.Fatalf("stage after reindex = %v, want finalize", got)
	}

	next, _ = m.Update(ingestResetMsg{})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageIdle {
		t.Fatalf("stage after reset = %v, want idle", got)
	}
}

func TestUploadFailureResetsPipeline(t *testing.T) {
	m := newTestModel(t)
	if err := m.tracker.Start([]string{"report.pdf"}); err != nil {
		t.Fatalf("tracker start: %v", err)
	}

	next, _ := m.Update(uploadDoneMsg{err: errors.New("413 payload too large")})
	m = next.(Model)

	if got := m.tracker.Stage(); got != ingest.StageIdle {
		t.Fatalf("stage after failed upload = %v, want idle", got)
	}
	if m.notice == "" {
		t.Fatal("a failed upload should raise a blocking notice")
	}
}

func TestStaleStageTickIsIgnored(t *testing.T) {
	m := newTestModel(t)
	if err := m.tracker.Start([]string{"report.pdf"}); err != nil {
		t.Fatalf("tracker start: %v", err)
	}

	// Embed before headers is out of sequence and must not move the stage.
	next, _ := m.Update(stageTickMsg{target: ingest.StageEmbed})
	m = next.(Model)
	if got := m.tracker.Stage(); got != ingest.StageUpload {
		t.Fatalf("stage after stale tick = %v, want upload", got)
	}
}

func TestNewChatKeyActivatesFreshSession(t *testing.T) {
	m := newTestModel(t)
	existing := m.store.NewSession("Existing")
	m.store.Append(api.Message{Role: api.RoleUser, Content: "old"})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'N'}})
	m = next.(Model)

	sessions := m.store.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("session count = %d, want 2", len(sessions))
	}
	if m.store.ActiveID() == existing.ID {
		t.Fatal("new chat must become the active session")
	}
	if sessions[0].ID != m.store.ActiveID() {
		t.Fatal("new chat must be inserted at the head of the list")
	}
	if len(m.store.Timeline()) != 0 {
		t.Fatal("new chat must start with an empty timeline")
	}
}

func TestFirstMessageRenamesDefaultTitledSession(t *testing.T) {
	m := newTestModel(t)
	sess := m.store.NewSession("")
	if m.store.TitleFor(sess.ID) != chat.DefaultTitle {
		t.Fatalf("fresh session title = %q", m.store.TitleFor(sess.ID))
	}

	m = submitText(t, m, "Summarize the onboarding guide")

	if got := m.store.TitleFor(sess.ID); got != "Summarize the onboarding guide" {
		t.Fatalf("title after first message = %q", got)
	}
}

func TestTargetDocumentCyclesThroughFilter(t *testing.T) {
	m := newTestModel(t)
	m.documents = []api.Document{{Name: "a.pdf"}, {Name: "b.pdf"}}

	if got := m.targetDocument(); got != "" {
		t.Fatalf("default filter = %q, want all documents", got)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m = next.(Model)
	if got := m.targetDocument(); got != "a.pdf" {
		t.Fatalf("filter after one cycle = %q, want a.pdf", got)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	m = next.(Model)
	if got := m.targetDocument(); got != "" {
		t.Fatalf("filter after full cycle = %q, want all documents", got)
	}
}
