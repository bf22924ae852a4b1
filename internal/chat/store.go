// Package chat holds the in-memory session and timeline state for the Q&A
// view. The store is the only owner of the session list and the active
// session pointer; it is reloaded from the backend on each run and never
// persisted locally.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"docdeck/internal/api"
)

const DefaultTitle = "New Conversation"

// TitleLimit caps auto-generated session titles taken from the first query.
const TitleLimit = 30

type Store struct {
	sessions []api.Session
	activeID string
	timeline []api.Message

	now func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Sessions() []api.Session {
	return s.sessions
}

// Replace swaps in a freshly loaded session list. The active pointer is kept
// when the session still exists, otherwise it falls to the head of the list.
func (s *Store) Replace(sessions []api.Session) {
	s.sessions = sessions
	if s.activeID != "" {
		for _, sess := range sessions {
			if sess.ID == s.activeID {
				return
			}
		}
	}
	if len(sessions) > 0 {
		s.activeID = sessions[0].ID
	} else {
		s.activeID = ""
	}
}

func (s *Store) ActiveID() string {
	return s.activeID
}

func (s *Store) Active() (api.Session, bool) {
	for _, sess := range s.sessions {
		if sess.ID == s.activeID && s.activeID != "" {
			return sess, true
		}
	}
	return api.Session{}, false
}

// SetActive switches the active session and discards the previous timeline.
// Returns false when id is already active or unknown.
func (s *Store) SetActive(id string) bool {
	if id == s.activeID {
		return false
	}
	for _, sess := range s.sessions {
		if sess.ID == id {
			s.activeID = id
			s.timeline = nil
			return true
		}
	}
	return false
}

func (s *Store) ClearActive() {
	s.activeID = ""
	s.timeline = nil
}

// NewSession allocates a session locally: fresh id, head insertion, and
// activation happen before any backend call so the UI updates immediately.
func (s *Store) NewSession(title string) api.Session {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	sess := api.Session{
		ID:       uuid.NewString(),
		Title:    title,
		Messages: []api.Message{},
		Date:     s.now().Format("2006-01-02 15:04"),
	}
	s.sessions = append([]api.Session{sess}, s.sessions...)
	s.activeID = sess.ID
	s.timeline = nil
	return sess
}

// Remove deletes a session from the list. When the active session is removed,
// activation falls to the new head, or to none when the list is empty.
// Returns the resulting active id.
func (s *Store) Remove(id string) string {
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept

	if s.activeID == id {
		s.timeline = nil
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		} else {
			s.activeID = ""
		}
	}
	return s.activeID
}

// Rename trims the new title and silently discards a blank rename.
func (s *Store) Rename(id, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].Title = title
			return true
		}
	}
	return false
}

func (s *Store) TitleFor(id string) string {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess.Title
		}
	}
	return ""
}

func (s *Store) Timeline() []api.Message {
	return s.timeline
}

func (s *Store) SetTimeline(msgs []api.Message) {
	s.timeline = msgs
}

// Append adds a fully-formed message to the active timeline. Messages are
// immutable once appended and keep insertion order.
func (s *Store) Append(msg api.Message) {
	s.timeline = append(s.timeline, msg)
}

// DeriveTitle turns the first query of a conversation into a session title.
func DeriveTitle(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > TitleLimit {
		return string(runes[:TitleLimit])
	}
	return text
}
