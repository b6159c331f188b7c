// Package icwire implements the IC frame header of spec §4.4: a 12-byte,
// little-endian, fixed-width header (flags, a 24-bit reserved/correlation
// field, a signed command word, and a data length) followed by
// data_length payload bytes.
//
// Grounded on transport/pdu.go's extProtoHdr/sizeProtoHdr idiom (a fixed
// header size constant, a flags byte with bit tests, explicit
// pack/unpack over a byte buffer) generalized from aistore's object-
// stream header to IC's query/reply/stream-control header; encoding/binary
// replaces pdu.go's inline shift/mask since IC's header has more
// heterogeneous subfields (a 24-bit field sharing a word with an 8-bit
// flags byte) than a flat run of same-width integers.
package icwire

import (
	"encoding/binary"

	"github.com/intersec-oss/iop/internal/status"
)

// HeaderSize is the fixed 12-byte frame header of spec §4.4.
const HeaderSize = 12

// Flags, spec §4.4: "HAS_FD, HAS_HDR, IS_TRACED, and PRIORITY (2 bits)".
const (
	FlagHasFD byte = 1 << iota
	FlagHasHdr
	FlagIsTraced
)

const (
	priorityShift = 3
	priorityMask  = 0x3 << priorityShift
)

// Priority is one of the three send-queue classes of spec §4.5.1.
type Priority byte

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// FlagPriority extracts the PRIORITY flag bits.
func FlagPriority(flags byte) Priority { return Priority((flags & priorityMask) >> priorityShift) }

// WithPriority returns flags with its PRIORITY bits set to p, leaving the
// other flag bits untouched.
func WithPriority(flags byte, p Priority) byte {
	return (flags &^ priorityMask) | (byte(p)<<priorityShift)&priorityMask
}

// controlCommand is the exact command word spec §4.4 reserves to mark a
// stream-control frame: 0x8000_0000, i.e. math.MinInt32 as a signed
// 32-bit command.
const controlCommand int32 = -1 << 31

// IsControl reports whether command marks a stream-control frame.
func IsControl(command int32) bool { return command == controlCommand }

// IsReply reports whether command encodes a reply (status code), per
// spec §4.4: "otherwise negative/zero is a reply".
func IsReply(command int32) bool { return !IsControl(command) && command <= 0 }

// IsQuery reports whether command encodes a query dispatch address.
func IsQuery(command int32) bool { return command > 0 }

// EncodeQueryCommand packs a query's (interface, rpc) pair into a command
// word, both occupying 15-bit subfields with their top bit reserved zero
// per spec §4.4.
func EncodeQueryCommand(iface, rpc uint16) (int32, error) {
	if iface > 0x7fff || rpc > 0x7fff {
		return 0, status.New(status.Invalid, "icwire: interface/rpc id exceeds 15 bits (%d, %d)", iface, rpc)
	}
	return int32(uint32(iface)<<16 | uint32(rpc)), nil
}

// DecodeQueryCommand is EncodeQueryCommand's inverse; command must satisfy
// IsQuery.
func DecodeQueryCommand(command int32) (iface, rpc uint16) {
	u := uint32(command)
	return uint16((u >> 16) & 0x7fff), uint16(u & 0x7fff)
}

// Header is the in-memory form of spec §4.4's 12-byte frame header.
type Header struct {
	Flags      byte
	Slot       uint32 // low 24 bits: query correlation id, or control sub-type
	Command    int32
	DataLength uint32
}

// Marshal writes h's wire form to a fresh HeaderSize-byte slice.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = h.Flags
	putUint24(buf[1:4], h.Slot)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Command))
	binary.LittleEndian.PutUint32(buf[8:12], h.DataLength)
	return buf
}

// Unmarshal parses a HeaderSize-byte slice into h, rejecting a
// data_length with its reserved top bit set (spec §4.4's invariant: "a
// reader that observes it must reject the frame").
func Unmarshal(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, status.New(status.Invalid, "icwire: short header (%d < %d)", len(buf), HeaderSize)
	}
	dataLen := binary.LittleEndian.Uint32(buf[8:12])
	if dataLen&0x8000_0000 != 0 {
		return Header{}, status.New(status.Invalid, "icwire: data_length reserved bit set")
	}
	return Header{
		Flags:      buf[0],
		Slot:       getUint24(buf[1:4]),
		Command:    int32(binary.LittleEndian.Uint32(buf[4:8])),
		DataLength: dataLen,
	}, nil
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func getUint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
