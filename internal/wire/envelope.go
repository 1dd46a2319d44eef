package wire

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/avbdr/partyline/internal/core"
)

// HeaderLen is the fixed custom-message envelope header size.
const HeaderLen = 52

// Header layout. reserved1/reserved2 are vendor-opaque signatures observed
// byte-identical across captures; the counter field changes per message
// with unconfirmed semantics.
var (
	envMagic     = [4]byte{0x01, 0x00, 0x00, 0x01}
	envReserved1 = [12]byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	envReserved2 = [11]byte{0x9B, 0xC5, 0x19, 0x13, 0xCE, 0xFE, 0x5A, 0x3D, 0xA1, 0x86, 0x01}
	envTrailer   = [6]byte{'2', '/', '1', '/', '1', '\n'}
)

const (
	magicOff     = 0
	reserved1Off = 4
	reserved2Off = 16
	paddingOff   = 27
	counterOff   = 42
	trailerOff   = 46
)

// Envelope is a decoded custom-message frame. Variant is the last magic
// byte, observed to vary between captures.
type Envelope struct {
	Variant byte
	Counter uint32
	Payload []byte
}

// EncodeEnvelope frames payload in the fixed 52-byte header.
func EncodeEnvelope(counter uint32, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	copy(buf[magicOff:], envMagic[:])
	copy(buf[reserved1Off:], envReserved1[:])
	copy(buf[reserved2Off:], envReserved2[:])
	// buf[paddingOff:counterOff] stays zero
	binary.LittleEndian.PutUint32(buf[counterOff:], counter)
	copy(buf[trailerOff:], envTrailer[:])
	copy(buf[HeaderLen:], payload)
	return buf
}

// DecodeEnvelope parses a received frame. It validates the header regions
// whose bytes are fixed; the counter and payload pass through untouched.
func DecodeEnvelope(buf []byte) (Envelope, error) {
	if len(buf) < HeaderLen {
		return Envelope{}, &core.FramingError{
			Reason: fmt.Sprintf("frame is %d bytes, header needs %d", len(buf), HeaderLen),
		}
	}
	if buf[0] != envMagic[0] || buf[1] != envMagic[1] || buf[2] != envMagic[2] {
		return Envelope{}, &core.FramingError{Reason: "bad magic"}
	}
	if string(buf[trailerOff:HeaderLen]) != string(envTrailer[:]) {
		return Envelope{}, &core.FramingError{Reason: "bad trailer"}
	}
	payload := make([]byte, len(buf)-HeaderLen)
	copy(payload, buf[HeaderLen:])
	return Envelope{
		Variant: buf[3],
		Counter: binary.LittleEndian.Uint32(buf[counterOff:]),
		Payload: payload,
	}, nil
}

// WrapPayload wraps an encoded envelope in the text template the
// custom-message endpoint expects. The space before the base64 body is
// part of the observed format.
func WrapPayload(envelope []byte) string {
	return "payload=ver=1.0, type=binary, body= " + base64.StdEncoding.EncodeToString(envelope)
}
