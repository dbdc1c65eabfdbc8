package chat

import "sync"

// Guard enforces at most one in-flight request per user. Admission is an
// atomic per-key check-and-set; admissions for distinct users never block
// each other. The key table grows with distinct users seen, which is fine
// at this scale.
type Guard struct {
	inflight sync.Map // userID -> struct{}
}

func NewGuard() *Guard {
	return &Guard{}
}

// TryAdmit reports whether the caller may process an event for userID.
// A false return means a request is already in flight and the event must
// be dropped without any reply.
func (g *Guard) TryAdmit(userID string) bool {
	_, loaded := g.inflight.LoadOrStore(userID, struct{}{})
	return !loaded
}

// Release clears the in-flight flag. Must run on every exit path after a
// successful TryAdmit, including panics; a leaked flag blocks the user
// permanently.
func (g *Guard) Release(userID string) {
	g.inflight.Delete(userID)
}
