// Package rtc is the default media engine. It owns the pion peer
// connections; everything above this package moves SDP around as opaque
// strings.
package rtc

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/domain"
)

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

type Engine struct {
	cfg webrtc.Configuration

	mu            sync.Mutex
	peers         map[domain.PeerID]*webrtc.PeerConnection
	onEstablished func(domain.PeerID)
}

func NewEngine(cfg webrtc.Configuration) *Engine {
	return &Engine{cfg: cfg, peers: make(map[domain.PeerID]*webrtc.PeerConnection)}
}

// OnEstablished sets the callback invoked when a peer's ICE connection
// comes up. Set before the first Offer/Answer call.
func (e *Engine) OnEstablished(fn func(domain.PeerID)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onEstablished = fn
}

func (e *Engine) peer(peerID domain.PeerID) (*webrtc.PeerConnection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if pc, ok := e.peers[peerID]; ok {
		return pc, nil
	}
	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		return nil, err
	}

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("peer", string(peerID)).Str("ice_state", s.String()).Msg("ICE state")
		if s == webrtc.ICEConnectionStateConnected && e.onEstablished != nil {
			e.onEstablished(peerID)
		}
	})

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
		pc.Close()
		return nil, err
	}
	if _, err := pc.CreateDataChannel("application", nil); err != nil {
		pc.Close()
		return nil, err
	}

	e.peers[peerID] = pc
	return pc, nil
}

// Offer produces the local SDP offer for a peer, with ICE candidates
// gathered inline.
func (e *Engine) Offer(ctx context.Context, peerID domain.PeerID) (string, error) {
	pc, err := e.peer(peerID)
	if err != nil {
		return "", err
	}
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return pc.LocalDescription().SDP, nil
}

// Answer applies a remote SDP offer and produces the local answer.
func (e *Engine) Answer(ctx context.Context, peerID domain.PeerID, remoteOffer string) (string, error) {
	pc, err := e.peer(peerID)
	if err != nil {
		return "", err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  remoteOffer,
	}); err != nil {
		return "", err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return pc.LocalDescription().SDP, nil
}

// ApplyAnswer applies a remote SDP answer to a previously offered peer.
func (e *Engine) ApplyAnswer(peerID domain.PeerID, sdp string) error {
	pc, err := e.peer(peerID)
	if err != nil {
		return err
	}
	return pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

// ClosePeer releases one peer's media resources.
func (e *Engine) ClosePeer(peerID domain.PeerID) {
	e.mu.Lock()
	pc, ok := e.peers[peerID]
	delete(e.peers, peerID)
	e.mu.Unlock()
	if !ok {
		return
	}
	if err := pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("peer", string(peerID)).Msg("close error")
	} else {
		log.Info().Str("module", "rtc").Str("peer", string(peerID)).Msg("closed")
	}
}

// Close releases every peer connection.
func (e *Engine) Close() {
	e.mu.Lock()
	peers := e.peers
	e.peers = make(map[domain.PeerID]*webrtc.PeerConnection)
	e.mu.Unlock()
	for peerID, pc := range peers {
		if err := pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Str("peer", string(peerID)).Msg("close error")
		}
	}
}
