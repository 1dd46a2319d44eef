package wire

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/avbdr/partyline/internal/core"
	"github.com/avbdr/partyline/internal/domain"
)

func decodeCustomData1(t *testing.T, encoded string) []byte {
	t.Helper()
	inner, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("outer base64: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(string(inner))
	if err != nil {
		t.Fatalf("inner base64: %v", err)
	}
	return raw
}

func TestCustomData1RoundTrip(t *testing.T) {
	cases := []domain.GroupID{
		"G123",
		"a",
		"group~with-punct_123",
		domain.GroupID(strings.Repeat("x", 76)),
	}
	for _, groupID := range cases {
		encoded, err := CustomData1(groupID)
		if err != nil {
			t.Fatalf("CustomData1(%q): %v", groupID, err)
		}
		raw := decodeCustomData1(t, encoded)
		if len(raw) != GroupIDPadLen {
			t.Fatalf("padded length = %d, want %d", len(raw), GroupIDPadLen)
		}
		got := string(bytes.TrimRight(raw, "\x00"))
		if got != string(groupID) {
			t.Fatalf("recovered %q, want %q", got, groupID)
		}
	}
}

func TestCustomData1Padding(t *testing.T) {
	encoded, err := CustomData1("G123")
	if err != nil {
		t.Fatal(err)
	}
	raw := decodeCustomData1(t, encoded)
	if !bytes.Equal(raw[:4], []byte("G123")) {
		t.Fatalf("prefix = %q, want G123", raw[:4])
	}
	if !bytes.Equal(raw[4:], make([]byte, 72)) {
		t.Fatal("expected 72 trailing zero bytes")
	}
}

func TestCustomData1TooLong(t *testing.T) {
	_, err := CustomData1(domain.GroupID(strings.Repeat("x", 77)))
	var encErr *core.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("err = %v, want EncodingError", err)
	}
}

func TestCustomData2Constant(t *testing.T) {
	decoded, err := base64.StdEncoding.DecodeString(CustomData2())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"shareplay":{"isKratosUser":false,"psPlusAuthorized":true}}`
	if string(decoded) != want {
		t.Fatalf("decoded = %s, want %s", decoded, want)
	}
}

func TestCustomData3Split(t *testing.T) {
	cases := []struct {
		sessionID domain.SessionID
		accountID domain.AccountID
	}{
		{"s-1", "12345"},
		{"9b2e8c7a-aaaa-bbbb-cccc-000000000000", "6127810321234567890"},
		{"", ""},
	}
	for _, c := range cases {
		decoded, err := base64.StdEncoding.DecodeString(CustomData3(c.sessionID, c.accountID))
		if err != nil {
			t.Fatal(err)
		}
		parts := strings.Split(string(decoded), "\n")
		if len(parts) != 2 {
			t.Fatalf("split into %d parts, want 2", len(parts))
		}
		if parts[0] != string(c.sessionID) || parts[1] != string(c.accountID) {
			t.Fatalf("got (%q,%q), want (%q,%q)", parts[0], parts[1], c.sessionID, c.accountID)
		}
	}
}

func TestCustomData4Idle(t *testing.T) {
	decoded, err := base64.StdEncoding.DecodeString(CustomData4(DefaultCaptureState()))
	if err != nil {
		t.Fatal(err)
	}
	want := `[ "", "", "1", "0", "0.0.0", "0", "0" ]`
	if string(decoded) != want {
		t.Fatalf("decoded = %s, want %s", decoded, want)
	}
}

func TestCustomData4VoiceFlag(t *testing.T) {
	active := DefaultCaptureState().WithVoiceActive(true)
	if !active.VoiceActive() {
		t.Fatal("voice flag not set")
	}
	decoded, err := base64.StdEncoding.DecodeString(CustomData4(active))
	if err != nil {
		t.Fatal(err)
	}
	want := `[ "", "", "1", "1", "0.0.0", "0", "0" ]`
	if string(decoded) != want {
		t.Fatalf("decoded = %s, want %s", decoded, want)
	}

	idle := active.WithVoiceActive(false)
	if idle.VoiceActive() {
		t.Fatal("voice flag still set")
	}
	if CustomData4(idle) != CustomData4(DefaultCaptureState()) {
		t.Fatal("idle encoding diverged from canonical default")
	}
}
