package chat

import "sync"

// maxWindow is the per-user conversation window size. Appending beyond it
// evicts the oldest turn.
const maxWindow = 10

// Store holds per-user rolling conversation windows and system prompt
// overrides. In-memory only; everything is lost on restart. Windows and
// slots are created lazily on first touch.
type Store struct {
	mu      sync.Mutex
	windows map[string][]Turn
	prompts map[string]string
}

func NewStore() *Store {
	return &Store{
		windows: make(map[string][]Turn),
		prompts: make(map[string]string),
	}
}

// AppendUser adds a user turn to the user's window.
func (s *Store) AppendUser(userID, text string) {
	s.append(userID, Turn{Role: RoleUser, Content: text})
}

// AppendAssistant adds an assistant turn to the user's window.
func (s *Store) AppendAssistant(userID, text string) {
	s.append(userID, Turn{Role: RoleAssistant, Content: text})
}

func (s *Store) append(userID string, t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := append(s.windows[userID], t)
	if len(w) > maxWindow {
		w = append([]Turn(nil), w[len(w)-maxWindow:]...)
	}
	s.windows[userID] = w
}

// SetSystemPrompt replaces the user's system prompt. The slot holds at most
// one prompt; there is no append.
func (s *Store) SetSystemPrompt(userID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[userID] = text
}

// SystemPrompt returns the user's system prompt, if one is set.
func (s *Store) SystemPrompt(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[userID]
	return p, ok
}

// Clear empties both the conversation window and the system prompt slot.
// No entry point removes a single turn; only Clear or window overflow do.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, userID)
	delete(s.prompts, userID)
}

// Messages returns the system turn (if set) followed by the user's window
// in chronological order. The returned slice is the caller's to keep.
func (s *Store) Messages(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []Turn
	if p, ok := s.prompts[userID]; ok {
		msgs = append(msgs, Turn{Role: RoleSystem, Content: p})
	}
	return append(msgs, s.windows[userID]...)
}
