// Package orch drives the party lifecycle: join the session, stand up the
// relay bridge, negotiate each discovered peer, and consume push events
// for the session's lifetime. It is the single writer of session state;
// the signaling client only feeds it frames.
package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/app"
	"github.com/avbdr/partyline/internal/core"
	"github.com/avbdr/partyline/internal/domain"
	"github.com/avbdr/partyline/internal/wire"
)

type Orchestrator struct {
	Session *app.SessionContext
	Party   *app.PartyManager
	Bridges *app.BridgeManager
	Peers   *app.PeerNegotiator
	Signal  core.EventSource
	Media   core.MediaEngine

	bridge *domain.Bridge
}

// Start joins the group's party session and brings up the relay path:
// acquire a bridge, register it (one refetch+retry on a concurrent
// modification), bind the member record, then negotiate every peer
// already attached.
func (o *Orchestrator) Start(ctx context.Context, groupID domain.GroupID) error {
	session, err := o.Party.JoinOrCreate(ctx, groupID)
	if err != nil {
		return fmt.Errorf("join party: %w", err)
	}

	bridge, err := o.Bridges.AcquireBridge(ctx)
	if err != nil {
		return fmt.Errorf("acquire bridge: %w", err)
	}

	if err := o.Bridges.RegisterBridge(ctx, session, bridge); err != nil {
		var cfErr *core.ConflictError
		if !errors.As(err, &cfErr) {
			return fmt.Errorf("register bridge: %w", err)
		}
		log.Info().Str("module", "orch").Msg("bridge list moved underneath us, refetching")
		fresh, err := o.Party.Refetch(ctx)
		if err != nil {
			return fmt.Errorf("refetch session: %w", err)
		}
		if err := o.Bridges.RegisterBridge(ctx, fresh, bridge); err != nil {
			return fmt.Errorf("register bridge retry: %w", err)
		}
	}
	o.bridge = bridge

	if err := o.Party.UpdateMemberBinding(ctx); err != nil {
		return fmt.Errorf("bind member: %w", err)
	}

	peers, err := o.Bridges.ListPeers(ctx, bridge)
	if err != nil {
		return fmt.Errorf("list peers: %w", err)
	}
	for _, peerID := range peers {
		o.negotiate(ctx, peerID)
	}
	return nil
}

// negotiate runs one peer from discovery to offer. The answer leg arrives
// later through the push socket; failures are terminal per peer and do not
// abort the session.
func (o *Orchestrator) negotiate(ctx context.Context, peerID domain.PeerID) {
	o.Peers.Track(peerID)
	if err := o.Peers.MakeOffer(ctx, o.bridge, peerID); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("peer", string(peerID)).Msg("offer failed")
		return
	}
	if _, err := o.Media.Offer(ctx, peerID); err != nil {
		o.Peers.Fail(peerID, err)
	}
}

// AnswerPeer completes a peer's exchange with the SDP produced by the
// media engine for the peer's offer.
func (o *Orchestrator) AnswerPeer(ctx context.Context, peerID domain.PeerID, remoteOffer string) error {
	if o.bridge == nil {
		return app.ErrNoSession
	}
	sdp, err := o.Media.Answer(ctx, peerID, remoteOffer)
	if err != nil {
		o.Peers.Fail(peerID, err)
		return err
	}
	return o.Peers.MakeAnswer(ctx, o.bridge, peerID, sdp)
}

// SetMuted flips the local voice flag: the capability vector is
// re-submitted so the server's member record stays current, then the mute
// state is announced to the addressed members over the custom-message
// channel.
func (o *Orchestrator) SetMuted(ctx context.Context, muted bool, to []domain.CustomMessageUser) error {
	state := o.Party.Capture().WithVoiceActive(!muted)
	if err := o.Party.UpdateCapability(ctx, state); err != nil {
		return fmt.Errorf("update capability: %w", err)
	}
	msg := []byte(fmt.Sprintf(`{"muted":%t}`, muted))
	if err := o.Party.SendCustomMessage(ctx, msg, to); err != nil {
		return fmt.Errorf("announce mute: %w", err)
	}
	return nil
}

// Run consumes push frames serially until ctx is cancelled. The signaling
// client reconnects itself; this loop is the only consumer.
func (o *Orchestrator) Run(ctx context.Context) error {
	go func() {
		if err := o.Signal.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("module", "orch").Msg("signaling client stopped")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()
		case frame := <-o.Signal.Frames():
			o.onFrame(frame)
		}
	}
}

// onFrame handles one inbound push frame. Frames carrying the binary
// custom-message envelope are decoded; anything else is vendor push
// traffic surfaced for visibility only.
func (o *Orchestrator) onFrame(frame core.Frame) {
	env, err := wire.DecodeEnvelope(frame)
	if err != nil {
		log.Debug().Str("module", "orch").Int("len", len(frame)).Msg("push frame")
		return
	}
	log.Info().Str("module", "orch").
		Uint32("counter", env.Counter).
		Int("payload_len", len(env.Payload)).
		Msg("custom message received")
}

func (o *Orchestrator) shutdown() {
	o.Media.Close()
	o.Session.ClearSession()
	log.Info().Str("module", "orch").Msg("session ended")
}
