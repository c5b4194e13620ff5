package control

import "sync"

// DialogState enumerates the import dialogue steps. Idle is represented by
// the absence of a session.
type DialogState string

const (
	StateAwaitingURL   DialogState = "awaiting_url"
	StateAwaitingRange DialogState = "awaiting_range"
)

// Session is the per-user import dialogue record: the pending step plus the
// provisional target discovered so far.
type Session struct {
	UserID     int64
	State      DialogState
	URL        string
	RangeStart int
	RangeEnd   int
	Total      int
	Title      string
}

// SessionStore keeps per-user sessions behind one lock. Sessions are created
// when a dialogue starts and destroyed on completion, cancellation or expiry
// detection.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewSessionStore builds an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[int64]*Session{}}
}

// Get returns the session for a user, or nil when none exists.
func (s *SessionStore) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Put stores or replaces a user's session.
func (s *SessionStore) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session
}

// Delete discards a user's session; missing sessions are a no-op.
func (s *SessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
