package session

import (
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// Registry issues and validates correlation tokens for programmatic
// message submission. In-memory only; tokens die with the process.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]struct{})}
}

// Issue creates and remembers a new correlation token.
func (r *Registry) Issue() string {
	u := uuid.New()
	token := hex.EncodeToString(u[:])

	r.mu.Lock()
	r.tokens[token] = struct{}{}
	r.mu.Unlock()
	return token
}

// Validate reports whether token was issued by this process.
func (r *Registry) Validate(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[token]
	return ok
}
