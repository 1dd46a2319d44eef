package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/adapters/rest"
	"github.com/avbdr/partyline/internal/domain"
)

const (
	bridgesPath        = "/api/rtcBridge/v1/bridges"
	sessionBridgesPath = "/api/sessionManager/v1/partySessions/%s/bridges"
	bridgePeersPath    = "/api/rtcBridge/v1/bridges/%s/peers?allow_duid_duplication=false"

	headerTitleID     = "X-PSN-RTC-TITLE-ID"
	headerBridgeToken = "X-PSN-BRIDGE-TOKEN"
)

// BridgeManager allocates relay bridges and registers them to the current
// session. Bridge-scoped calls authenticate with the bridge's own token,
// never with the session bearer token alone.
type BridgeManager struct {
	rest    *rest.Client
	sc      *SessionContext
	titleID string
}

func NewBridgeManager(rc *rest.Client, sc *SessionContext, titleID string) *BridgeManager {
	return &BridgeManager{rest: rc, sc: sc, titleID: titleID}
}

func (b *BridgeManager) titleHeader() http.Header {
	hdr := http.Header{}
	hdr.Set(headerTitleID, b.titleID)
	return hdr
}

// AcquireBridge requests a fresh relay bridge for this title identity.
// Every call yields a distinct bridge; call it once per session unless a
// second relay path is intended.
func (b *BridgeManager) AcquireBridge(ctx context.Context) (*domain.Bridge, error) {
	var resp struct {
		Bridge domain.Bridge `json:"bridge"`
	}
	if err := b.rest.Do(ctx, http.MethodPost, bridgesPath, b.titleHeader(), struct{}{}, &resp); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.bridge").
		Str("bridge", string(resp.Bridge.BridgeID)).
		Msg("acquired bridge")
	return &resp.Bridge, nil
}

// RegisterBridge appends bridge to the session's bridge list. Returns
// ConflictError when the list changed underneath us (etag mismatch); the
// caller must re-fetch the session and retry with the fresh list.
func (b *BridgeManager) RegisterBridge(ctx context.Context, session *domain.PartySession, bridge *domain.Bridge) error {
	_, sessionID := b.sc.Pair()
	if sessionID == "" {
		return ErrNoSession
	}
	body := struct {
		Bridges []domain.Bridge `json:"bridges"`
	}{append(append([]domain.Bridge{}, session.Bridges...), *bridge)}

	path := fmt.Sprintf(sessionBridgesPath, sessionID)
	if err := b.rest.Do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return err
	}
	log.Info().Str("module", "app.bridge").
		Str("session", string(sessionID)).
		Str("bridge", string(bridge.BridgeID)).
		Msg("registered bridge")
	return nil
}

// ListPeers enumerates the peers attached to a bridge. Duplicate-device
// peers are excluded server-side via allow_duid_duplication=false.
func (b *BridgeManager) ListPeers(ctx context.Context, bridge *domain.Bridge) ([]domain.PeerID, error) {
	if bridge.BridgeToken == "" {
		return nil, ErrNoBridgeToken
	}
	hdr := b.titleHeader()
	hdr.Set(headerBridgeToken, bridge.BridgeToken)

	var resp struct {
		Peers []struct {
			PeerID domain.PeerID `json:"peerId"`
		} `json:"peers"`
	}
	path := fmt.Sprintf(bridgePeersPath, bridge.BridgeID)
	if err := b.rest.Do(ctx, http.MethodPost, path, hdr, struct{}{}, &resp); err != nil {
		return nil, err
	}
	peers := make([]domain.PeerID, 0, len(resp.Peers))
	for _, p := range resp.Peers {
		peers = append(peers, p.PeerID)
	}
	return peers, nil
}
