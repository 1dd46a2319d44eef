package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/adapters/rest"
	"github.com/avbdr/partyline/internal/domain"
)

const peerOfferPath = "/api/rtcBridge/v1/bridges/%s/peers/%s/offer"

var (
	ErrUnknownPeer   = errors.New("peer not tracked")
	ErrBadTransition = errors.New("invalid negotiation transition")
	ErrPeerTerminal  = errors.New("peer negotiation already terminal")
	ErrMalformedSDP  = errors.New("malformed sdp")
)

// PeerState is the per-peer negotiation state.
type PeerState int

const (
	PeerDiscovered PeerState = iota
	PeerOfferSent
	PeerAnswerReceived
	PeerEstablished
	PeerFailed
)

func (s PeerState) String() string {
	switch s {
	case PeerDiscovered:
		return "discovered"
	case PeerOfferSent:
		return "offer-sent"
	case PeerAnswerReceived:
		return "answer-received"
	case PeerEstablished:
		return "established"
	case PeerFailed:
		return "failed"
	}
	return "unknown"
}

func (s PeerState) terminal() bool {
	return s == PeerEstablished || s == PeerFailed
}

type opusCapability struct {
	Bitrate       int    `json:"bitrate"`
	Channels      int    `json:"channels"`
	Codec         string `json:"codec"`
	Ptime         int    `json:"ptime"`
	SamplingRates []int  `json:"samplingRates"`
}

type mediaTypes struct {
	Application struct {
		IsRequired bool `json:"isRequired"`
	} `json:"application"`
	Audio struct {
		IsRequired bool             `json:"isRequired"`
		Opus       []opusCapability `json:"opus"`
	} `json:"audio"`
}

// offerCapabilities is the fixed local media descriptor: an application
// channel plus the SILK/CELT audio variants the relay understands.
func offerCapabilities() mediaTypes {
	var mt mediaTypes
	mt.Application.IsRequired = true
	mt.Audio.IsRequired = true
	mt.Audio.Opus = []opusCapability{
		{Bitrate: 12, Channels: 1, Codec: "SILK", Ptime: 40, SamplingRates: []int{16000}},
		{Bitrate: 24, Channels: 1, Codec: "CELT", Ptime: 40, SamplingRates: []int{16000}},
	}
	return mt
}

type peerEntry struct {
	state PeerState
	err   error
}

// PeerNegotiator drives the offer/answer exchange per bridge peer.
// Per peer: Discovered -> OfferSent -> AnswerReceived -> Established, or
// Failed from any non-terminal state. Negotiations for different peers may
// run concurrently. No internal retry: replaying an offer against a bridge
// may create duplicate peer state, so retries are caller policy.
type PeerNegotiator struct {
	rest    *rest.Client
	titleID string

	mu    sync.Mutex
	peers map[domain.PeerID]*peerEntry
}

func NewPeerNegotiator(rc *rest.Client, titleID string) *PeerNegotiator {
	return &PeerNegotiator{rest: rc, titleID: titleID, peers: make(map[domain.PeerID]*peerEntry)}
}

// Track registers a newly discovered peer. Idempotent for peers already
// tracked in any state.
func (n *PeerNegotiator) Track(peerID domain.PeerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.peers[peerID]; ok {
		return
	}
	n.peers[peerID] = &peerEntry{state: PeerDiscovered}
	log.Info().Str("module", "app.negotiator").Str("peer", string(peerID)).Msg("tracking peer")
}

// State reports a peer's current negotiation state.
func (n *PeerNegotiator) State(peerID domain.PeerID) (PeerState, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.peers[peerID]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Err returns the failure cause for a peer in PeerFailed.
func (n *PeerNegotiator) Err(peerID domain.PeerID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := n.peers[peerID]; ok {
		return e.err
	}
	return ErrUnknownPeer
}

func (n *PeerNegotiator) transition(peerID domain.PeerID, from, to PeerState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.peers[peerID]
	if !ok {
		return ErrUnknownPeer
	}
	if e.state.terminal() {
		return fmt.Errorf("%w: peer %s is %s", ErrPeerTerminal, peerID, e.state)
	}
	if e.state != from {
		return fmt.Errorf("%w: peer %s is %s, want %s", ErrBadTransition, peerID, e.state, from)
	}
	e.state = to
	return nil
}

// Fail moves a peer to the terminal PeerFailed state, recording cause.
// No-op for peers already terminal.
func (n *PeerNegotiator) Fail(peerID domain.PeerID, cause error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.peers[peerID]
	if !ok || e.state.terminal() {
		return
	}
	e.state = PeerFailed
	e.err = cause
	log.Warn().Err(cause).Str("module", "app.negotiator").Str("peer", string(peerID)).Msg("negotiation failed")
}

func (n *PeerNegotiator) bridgeHeader(bridge *domain.Bridge) http.Header {
	hdr := http.Header{}
	hdr.Set(headerTitleID, n.titleID)
	hdr.Set(headerBridgeToken, bridge.BridgeToken)
	return hdr
}

// MakeOffer posts the local media capability descriptor to the peer's
// bridge endpoint. Valid only from PeerDiscovered; transport failure is
// terminal for this peer.
func (n *PeerNegotiator) MakeOffer(ctx context.Context, bridge *domain.Bridge, peerID domain.PeerID) error {
	if bridge.BridgeToken == "" {
		return ErrNoBridgeToken
	}
	if err := n.transition(peerID, PeerDiscovered, PeerOfferSent); err != nil {
		return err
	}

	body := struct {
		MediaTypes mediaTypes `json:"mediaTypes"`
	}{offerCapabilities()}

	path := fmt.Sprintf(peerOfferPath, bridge.BridgeID, peerID)
	if err := n.rest.Do(ctx, http.MethodPost, path, n.bridgeHeader(bridge), body, nil); err != nil {
		n.Fail(peerID, err)
		return err
	}
	log.Info().Str("module", "app.negotiator").Str("peer", string(peerID)).Msg("offer sent")
	return nil
}

// MakeAnswer posts the remote SDP answer back through the bridge. Valid
// only from PeerOfferSent. The SDP comes from the media engine; this
// component treats it as an opaque string beyond a shape check.
func (n *PeerNegotiator) MakeAnswer(ctx context.Context, bridge *domain.Bridge, peerID domain.PeerID, remoteSDP string) error {
	if bridge.BridgeToken == "" {
		return ErrNoBridgeToken
	}
	if !strings.HasPrefix(remoteSDP, "v=") {
		err := fmt.Errorf("%w: no version line", ErrMalformedSDP)
		n.Fail(peerID, err)
		return err
	}
	if err := n.transition(peerID, PeerOfferSent, PeerAnswerReceived); err != nil {
		return err
	}

	body := struct {
		Answer struct {
			SDP string `json:"sdp"`
		} `json:"answer"`
	}{}
	body.Answer.SDP = remoteSDP

	path := fmt.Sprintf(peerOfferPath, bridge.BridgeID, peerID)
	if err := n.rest.Do(ctx, http.MethodPost, path, n.bridgeHeader(bridge), body, nil); err != nil {
		n.Fail(peerID, err)
		return err
	}
	log.Info().Str("module", "app.negotiator").Str("peer", string(peerID)).Msg("answer sent")
	return nil
}

// MarkEstablished records media-engine connectivity for a peer. The media
// engine owns the connection state machine; this only closes the loop.
func (n *PeerNegotiator) MarkEstablished(peerID domain.PeerID) error {
	if err := n.transition(peerID, PeerAnswerReceived, PeerEstablished); err != nil {
		return err
	}
	log.Info().Str("module", "app.negotiator").Str("peer", string(peerID)).Msg("established")
	return nil
}
