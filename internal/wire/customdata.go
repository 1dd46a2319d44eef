// Package wire implements the vendor's opaque byte encodings: the four
// customData blobs embedded in session/member records and the binary
// custom-message envelope. The backend validates these byte-for-byte.
package wire

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/avbdr/partyline/internal/core"
	"github.com/avbdr/partyline/internal/domain"
)

// GroupIDPadLen is the fixed length customData1 pads the group id to.
const GroupIDPadLen = 76

// CustomData1 encodes a group reference: the raw groupId bytes right-padded
// with zeros to 76 bytes, base64-encoded, then the resulting string base64
// encoded a second time. The double encoding is the vendor's, not ours.
func CustomData1(groupID domain.GroupID) (string, error) {
	raw := []byte(groupID)
	if len(raw) > GroupIDPadLen {
		return "", &core.EncodingError{
			Reason: fmt.Sprintf("groupId is %d bytes, limit %d", len(raw), GroupIDPadLen),
		}
	}
	padded := make([]byte, GroupIDPadLen)
	copy(padded, raw)
	inner := base64.StdEncoding.EncodeToString(padded)
	return base64.StdEncoding.EncodeToString([]byte(inner)), nil
}

// CustomData2 encodes the host capability flags. Constant output; the
// flags themselves are vendor-opaque.
func CustomData2() string {
	const hostFlags = `{"shareplay":{"isKratosUser":false,"psPlusAuthorized":true}}`
	return base64.StdEncoding.EncodeToString([]byte(hostFlags))
}

// CustomData3 binds a session to an account: base64 of
// sessionId + "\n" + accountId.
func CustomData3(sessionID domain.SessionID, accountID domain.AccountID) string {
	return base64.StdEncoding.EncodeToString([]byte(string(sessionID) + "\n" + string(accountID)))
}

// voiceSlot is the only slot of the capability vector with observed
// semantics: it toggles with local mute state.
const voiceSlot = 3

// CaptureState is the seven-slot peer capability vector carried in
// customData4. All slots except the voice flag are opaque pass-through
// values; do not reinterpret them.
type CaptureState struct {
	slots [7]string
}

// DefaultCaptureState returns the canonical idle capability vector.
func DefaultCaptureState() CaptureState {
	return CaptureState{slots: [7]string{"", "", "1", "0", "0.0.0", "0", "0"}}
}

// WithVoiceActive returns a copy with the voice flag set. Must be followed
// by re-submitting customData4, or remote peers observe stale state.
func (s CaptureState) WithVoiceActive(on bool) CaptureState {
	if on {
		s.slots[voiceSlot] = "1"
	} else {
		s.slots[voiceSlot] = "0"
	}
	return s
}

// VoiceActive reports the voice flag.
func (s CaptureState) VoiceActive() bool {
	return s.slots[voiceSlot] == "1"
}

// CustomData4 encodes the capability vector in the vendor's bracketed,
// space-separated form.
func CustomData4(s CaptureState) string {
	if s.slots == ([7]string{}) {
		s = DefaultCaptureState()
	}
	quoted := make([]string, len(s.slots))
	for i, v := range s.slots {
		quoted[i] = strconv.Quote(v)
	}
	text := "[ " + strings.Join(quoted, ", ") + " ]"
	return base64.StdEncoding.EncodeToString([]byte(text))
}
