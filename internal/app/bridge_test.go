package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/avbdr/partyline/internal/core"
	"github.com/avbdr/partyline/internal/domain"
)

func TestAcquireBridge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rtcBridge/v1/bridges", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-PSN-RTC-TITLE-ID") != "METROPOL_IOS" {
			t.Error("title header missing")
		}
		json.NewEncoder(w).Encode(map[string]domain.Bridge{
			"bridge": {BridgeID: "b-1", BridgeToken: "bt-1", BridgeEtag: "e-1"},
		})
	})

	rc, sc := newTestStack(t, mux)
	bm := NewBridgeManager(rc, sc, "METROPOL_IOS")

	bridge, err := bm.AcquireBridge(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if bridge.BridgeID != "b-1" || bridge.BridgeToken != "bt-1" || bridge.BridgeEtag != "e-1" {
		t.Fatalf("bridge = %+v", bridge)
	}
}

func TestListPeersRequiresBridgeToken(t *testing.T) {
	rc, sc := newTestStack(t, http.NewServeMux())
	bm := NewBridgeManager(rc, sc, "METROPOL_IOS")

	_, err := bm.ListPeers(context.Background(), &domain.Bridge{BridgeID: "b-1"})
	if err != ErrNoBridgeToken {
		t.Fatalf("err = %v, want ErrNoBridgeToken", err)
	}
}

func TestListPeers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rtcBridge/v1/bridges/b-1/peers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("allow_duid_duplication") != "false" {
			t.Error("duid duplication flag missing")
		}
		if r.Header.Get("X-PSN-BRIDGE-TOKEN") != "bt-1" {
			t.Error("bridge token header missing")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"peers": []map[string]string{{"peerId": "p-1"}, {"peerId": "p-2"}},
		})
	})

	rc, sc := newTestStack(t, mux)
	bm := NewBridgeManager(rc, sc, "METROPOL_IOS")

	peers, err := bm.ListPeers(context.Background(), &domain.Bridge{BridgeID: "b-1", BridgeToken: "bt-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(peers) != 2 || peers[0] != "p-1" || peers[1] != "p-2" {
		t.Fatalf("peers = %v", peers)
	}
}

// Stale-etag registration: first attempt conflicts, the re-fetched session
// carries the server's bridge list and fresh etag, and the retry lands.
func TestRegisterBridgeConflictRetry(t *testing.T) {
	serverBridges := []domain.Bridge{{BridgeID: "b-other", BridgeToken: "", BridgeEtag: "e-2"}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessionManager/v1/partySessions/s-1/bridges", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Bridges []domain.Bridge `json:"bridges"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		for _, b := range body.Bridges {
			if b.BridgeID == "b-other" {
				return // list is current, accept
			}
		}
		http.Error(w, `{"error":"etag mismatch"}`, http.StatusConflict)
	})
	mux.HandleFunc("GET /api/sessionManager/v1/partySessions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"partySessions": []domain.PartySession{{SessionID: "s-1", Bridges: serverBridges}},
		})
	})

	rc, sc := newTestStack(t, mux)
	sc.SetGroup("g-1")
	sc.SetSession("s-1")
	pm := NewPartyManager(rc, sc, 16, "miranda:12")
	bm := NewBridgeManager(rc, sc, "METROPOL_IOS")

	mine := &domain.Bridge{BridgeID: "b-mine", BridgeToken: "bt-1", BridgeEtag: "e-stale"}
	stale := &domain.PartySession{SessionID: "s-1"} // fetched before b-other appeared

	err := bm.RegisterBridge(context.Background(), stale, mine)
	var cfErr *core.ConflictError
	if !errors.As(err, &cfErr) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	fresh, err := pm.Refetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh.Bridges) != 1 || fresh.Bridges[0].BridgeEtag != "e-2" {
		t.Fatalf("refetched bridges = %+v", fresh.Bridges)
	}

	if err := bm.RegisterBridge(context.Background(), fresh, mine); err != nil {
		t.Fatalf("retry with fresh session failed: %v", err)
	}
}
