package icwire

import (
	"encoding/binary"

	"github.com/intersec-oss/iop/internal/status"
)

// ControlType is a stream-control frame's sub-type, carried in the
// header's Slot field when Command == controlCommand (spec §4.4: "BYE",
// "NOP", "VERSION").
type ControlType uint32

const (
	ControlBye ControlType = iota
	ControlNop
	ControlVersion
)

// CurrentVersion is the IC wire version this package speaks (spec §4.4:
// "version=1 is the current value").
const CurrentVersion uint16 = 1

// versionPayloadSize is the VERSION control frame's 4-byte payload: a
// 2-byte version plus a 1-byte TLS-request flag and 1 reserved byte,
// giving the "exactly 16 bytes total" spec §4.4 requires (12-byte header
// + 4-byte payload).
const versionPayloadSize = 4

const tlsRequestFlag = 0x01

// VersionPayload is the VERSION control frame's payload (spec §4.4).
type VersionPayload struct {
	Version  uint16
	WantsTLS bool
}

// VersionFrameParts builds the header and payload of a VERSION control
// frame separately, for callers (like ic.Channel) that enqueue header and
// payload onto a send queue rather than writing concatenated bytes.
func VersionFrameParts(p VersionPayload) (Header, []byte) {
	h := Header{Command: controlCommand, Slot: uint32(ControlVersion), DataLength: versionPayloadSize}
	payload := make([]byte, versionPayloadSize)
	binary.LittleEndian.PutUint16(payload[0:2], p.Version)
	if p.WantsTLS {
		payload[2] = tlsRequestFlag
	}
	return h, payload
}

// MarshalVersion builds the full 16-byte VERSION control frame.
func MarshalVersion(p VersionPayload) []byte {
	h, payload := VersionFrameParts(p)
	return append(h.Marshal(), payload...)
}

// UnmarshalVersion parses a VERSION control frame's payload.
func UnmarshalVersion(payload []byte) (VersionPayload, error) {
	if len(payload) != versionPayloadSize {
		return VersionPayload{}, status.New(status.Invalid, "icwire: VERSION payload must be %d bytes, got %d", versionPayloadSize, len(payload))
	}
	return VersionPayload{
		Version:  binary.LittleEndian.Uint16(payload[0:2]),
		WantsTLS: payload[2]&tlsRequestFlag != 0,
	}, nil
}

// ControlHeader builds the header of a zero-payload control frame (BYE or
// NOP); callers that need the raw wire bytes should use MarshalControl.
func ControlHeader(t ControlType) Header {
	return Header{Command: controlCommand, Slot: uint32(t)}
}

// MarshalControl builds a zero-payload control frame (BYE or NOP).
func MarshalControl(t ControlType) []byte {
	return ControlHeader(t).Marshal()
}

// NegotiatedVersion implements spec §4.5's closing note: "peers that both
// send VERSION converge to min(version_a, version_b); a peer that omits
// it is treated as version 0".
func NegotiatedVersion(localSent, peerSent bool, local, peer uint16) uint16 {
	if !peerSent {
		return 0
	}
	if !localSent {
		return 0
	}
	if local < peer {
		return local
	}
	return peer
}
