package core

import (
	"context"

	"github.com/avbdr/partyline/internal/domain"
)

// MediaEngine owns the WebRTC media stack (ICE, DTLS-SRTP, capture).
// The client only moves SDP offer/answer strings across this boundary and
// never inspects their contents.
type MediaEngine interface {
	// Offer produces the local SDP offer for a peer.
	Offer(ctx context.Context, peerID domain.PeerID) (string, error)
	// Answer applies a remote SDP offer and produces the local SDP answer.
	Answer(ctx context.Context, peerID domain.PeerID, remoteOffer string) (string, error)
	// ApplyAnswer applies a remote SDP answer to a previously offered peer.
	ApplyAnswer(peerID domain.PeerID, sdp string) error
	// ClosePeer releases media resources for one peer.
	ClosePeer(peerID domain.PeerID)
	// Close releases all media resources.
	Close()
}
