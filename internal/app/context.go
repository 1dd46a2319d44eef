package app

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/domain"
)

var (
	ErrTokenAlreadySet = errors.New("bearer token already set")
	ErrNoSession       = errors.New("not in a session")
	ErrNoBridgeToken   = errors.New("bridge has no token")
)

// SessionContext is the process-wide identity: bearer token, the generated
// push-context id, the current (group, session) pair and the outgoing
// sequence counter. Single-writer: only the session and bridge managers
// mutate it, and never concurrently. The backend's behavior against an
// inconsistent (group, session) pair is undefined, so the pair is only
// ever updated together.
type SessionContext struct {
	mu        sync.RWMutex
	token     string
	contextID string
	accountID domain.AccountID
	groupID   domain.GroupID
	sessionID domain.SessionID
	seq       uint64
}

func NewSessionContext() *SessionContext {
	return &SessionContext{contextID: uuid.NewString()}
}

// SetToken seeds the bearer token. Set once at startup, read-only after.
func (c *SessionContext) SetToken(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return ErrTokenAlreadySet
	}
	c.token = token
	return nil
}

func (c *SessionContext) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ContextID identifies this peer's push-notification registration. Stable
// for the process lifetime.
func (c *SessionContext) ContextID() string {
	return c.contextID
}

func (c *SessionContext) SetAccount(id domain.AccountID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountID = id
}

func (c *SessionContext) Account() domain.AccountID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

func (c *SessionContext) SetGroup(id domain.GroupID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupID = id
	log.Info().Str("module", "app.context").Str("group", string(id)).Msg("set group")
}

// SetSession records the joined session and resets the sequence counter.
// Sequence numbers are scoped per session and never reused within one.
func (c *SessionContext) SetSession(id domain.SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
	c.seq = 0
	log.Info().Str("module", "app.context").Str("session", string(id)).Msg("set session")
}

// Pair returns the current (group, session) pair as one consistent read.
func (c *SessionContext) Pair() (domain.GroupID, domain.SessionID) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groupID, c.sessionID
}

// ClearSession drops the session binding when the party ends.
func (c *SessionContext) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupID = ""
	c.sessionID = ""
	c.seq = 0
	log.Info().Str("module", "app.context").Msg("cleared session")
}

// NextSequence returns the next outgoing sequence number. Monotonic,
// strictly increasing, never blocks.
func (c *SessionContext) NextSequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}
