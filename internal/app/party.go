package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/adapters/rest"
	"github.com/avbdr/partyline/internal/core"
	"github.com/avbdr/partyline/internal/domain"
	"github.com/avbdr/partyline/internal/wire"
)

const (
	groupSessionsPath = "/api/gamingLoungeGroups/v1/groups/%s/partySessions"
	memberSelfPath    = "/api/sessionManager/v1/partySessions/%s/members/me.MOBILE_APP"
	listSessionsPath  = "/api/sessionManager/v1/partySessions?view=v1-all"
	customMessagePath = "/api/sessionManager/v1/partySessions/%s/customMessage"

	headerSessionIDs = "X-PSN-SESSION-MANAGER-SESSION-IDS"
	headerGroupIDs   = "X-PSN-SESSION-MANAGER-GROUP-IDS"
)

// PartyManager creates/joins the party session and keeps the member's
// opaque fields current. It is the only writer of the session binding in
// SessionContext besides ClearSession at shutdown.
type PartyManager struct {
	rest       *rest.Client
	sc         *SessionContext
	maxMembers int
	channel    string

	mu       sync.Mutex
	capture  wire.CaptureState
	snapshot *domain.PartySession
}

func NewPartyManager(rc *rest.Client, sc *SessionContext, maxMembers int, channel string) *PartyManager {
	if maxMembers <= 0 {
		maxMembers = domain.DefaultMaxMembers
	}
	return &PartyManager{
		rest:       rc,
		sc:         sc,
		maxMembers: maxMembers,
		channel:    channel,
		capture:    wire.DefaultCaptureState(),
	}
}

type joinMember struct {
	CustomData4        string               `json:"customData4"`
	PushContexts       []domain.PushContext `json:"pushContexts"`
	VoiceChatActivated string               `json:"voiceChatActivated"`
}

type joinRequest struct {
	CustomData1 string     `json:"customData1"`
	MaxMembers  int        `json:"maxMembers"`
	Member      joinMember `json:"member"`
}

// JoinOrCreate joins the group's party session, creating it if absent.
// On success the session binding is stored in SessionContext and a snapshot
// of the server's session record is kept for later re-fetch.
func (m *PartyManager) JoinOrCreate(ctx context.Context, groupID domain.GroupID) (*domain.PartySession, error) {
	cd1, err := wire.CustomData1(groupID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	capture := m.capture
	m.mu.Unlock()

	req := joinRequest{
		CustomData1: cd1,
		MaxMembers:  m.maxMembers,
		Member: joinMember{
			CustomData4:        wire.CustomData4(capture),
			PushContexts:       []domain.PushContext{{ContextID: m.sc.ContextID()}},
			VoiceChatActivated: "True",
		},
	}

	var session domain.PartySession
	path := fmt.Sprintf(groupSessionsPath, groupID)
	if err := m.rest.Do(ctx, http.MethodPost, path, nil, req, &session); err != nil {
		return nil, err
	}
	if session.SessionID == "" {
		return nil, errors.New("join response carries no sessionId")
	}

	m.sc.SetGroup(groupID)
	m.sc.SetSession(session.SessionID)
	m.mu.Lock()
	m.snapshot = &session
	m.mu.Unlock()

	log.Info().Str("module", "app.party").
		Str("group", string(groupID)).
		Str("session", string(session.SessionID)).
		Msg("joined party session")
	return &session, nil
}

// Session returns the last fetched session snapshot, or nil before join.
func (m *PartyManager) Session() *domain.PartySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// UpdateMemberBinding re-submits customData3 for the current
// (session, account) pair. Idempotent, safe to retry.
func (m *PartyManager) UpdateMemberBinding(ctx context.Context) error {
	_, sessionID := m.sc.Pair()
	if sessionID == "" {
		return ErrNoSession
	}
	body := struct {
		CustomData3 string `json:"customData3"`
	}{wire.CustomData3(sessionID, m.sc.Account())}
	return m.rest.Do(ctx, http.MethodPatch, fmt.Sprintf(memberSelfPath, sessionID), nil, body, nil)
}

// UpdateCapability submits a new capability vector. Must be called on
// every local mute/unmute transition; skipping it leaves remote peers with
// a stale view of this member.
func (m *PartyManager) UpdateCapability(ctx context.Context, state wire.CaptureState) error {
	_, sessionID := m.sc.Pair()
	if sessionID == "" {
		return ErrNoSession
	}
	body := struct {
		CustomData4 string `json:"customData4"`
	}{wire.CustomData4(state)}
	if err := m.rest.Do(ctx, http.MethodPatch, fmt.Sprintf(memberSelfPath, sessionID), nil, body, nil); err != nil {
		return err
	}
	m.mu.Lock()
	m.capture = state
	m.mu.Unlock()
	return nil
}

// Capture returns the last capability vector accepted by the backend.
func (m *PartyManager) Capture() wire.CaptureState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capture
}

// ListSessions fetches all sessions visible in the current session/group
// scope. A recoverable transport failure yields an empty list, not an
// error; backend rejections still surface.
func (m *PartyManager) ListSessions(ctx context.Context) ([]domain.PartySession, error) {
	groupID, sessionID := m.sc.Pair()
	hdr := http.Header{}
	hdr.Set(headerSessionIDs, string(sessionID))
	hdr.Set(headerGroupIDs, string(groupID))

	var resp struct {
		PartySessions []domain.PartySession `json:"partySessions"`
	}
	err := m.rest.Do(ctx, http.MethodGet, listSessionsPath, hdr, nil, &resp)
	if err != nil {
		var trErr *core.TransportError
		var toErr *core.TimeoutError
		if errors.As(err, &trErr) || errors.As(err, &toErr) {
			log.Warn().Err(err).Str("module", "app.party").Msg("list sessions unavailable")
			return nil, nil
		}
		return nil, err
	}
	return resp.PartySessions, nil
}

// Refetch refreshes the stored session snapshot from the directory. Used
// after a bridge-registration conflict to pick up the fresh etag.
func (m *PartyManager) Refetch(ctx context.Context) (*domain.PartySession, error) {
	_, sessionID := m.sc.Pair()
	if sessionID == "" {
		return nil, ErrNoSession
	}
	sessions, err := m.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].SessionID == sessionID {
			m.mu.Lock()
			m.snapshot = &sessions[i]
			m.mu.Unlock()
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("session %s no longer listed", sessionID)
}

type customMessageRequest struct {
	Channel               string                     `json:"channel"`
	Payload               string                     `json:"payload"`
	To                    []domain.CustomMessageUser `json:"to"`
	WithoutSequenceNumber bool                       `json:"withoutSequenceNumber"`
}

// SendCustomMessage frames payload in the binary envelope and posts it to
// the addressed members. The envelope counter is the session's outgoing
// sequence number.
func (m *PartyManager) SendCustomMessage(ctx context.Context, payload []byte, to []domain.CustomMessageUser) error {
	_, sessionID := m.sc.Pair()
	if sessionID == "" {
		return ErrNoSession
	}
	frame := wire.EncodeEnvelope(uint32(m.sc.NextSequence()), payload)
	req := customMessageRequest{
		Channel:               m.channel,
		Payload:               wire.WrapPayload(frame),
		To:                    to,
		WithoutSequenceNumber: true,
	}
	return m.rest.Do(ctx, http.MethodPost, fmt.Sprintf(customMessagePath, sessionID), nil, req, nil)
}
