package icwire

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	cmd, err := EncodeQueryCommand(3, 42)
	if err != nil {
		t.Fatalf("EncodeQueryCommand: %v", err)
	}
	h := Header{
		Flags:      WithPriority(FlagHasHdr|FlagIsTraced, PriorityHigh),
		Slot:       0xABCDEF,
		Command:    cmd,
		DataLength: 7,
	}
	got, err := Unmarshal(h.Marshal())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
	if !IsQuery(got.Command) {
		t.Fatalf("expected query command")
	}
	iface, rpc := DecodeQueryCommand(got.Command)
	if iface != 3 || rpc != 42 {
		t.Fatalf("DecodeQueryCommand = (%d, %d), want (3, 42)", iface, rpc)
	}
	if FlagPriority(got.Flags) != PriorityHigh {
		t.Fatalf("priority not preserved")
	}
}

func TestHeaderRejectsReservedDataLengthBit(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[11] = 0x80 // top bit of data_length (little-endian high byte)
	if _, err := Unmarshal(buf); err == nil {
		t.Fatalf("expected error for reserved data_length bit")
	}
}

func TestControlCommandClassification(t *testing.T) {
	if !IsControl(controlCommand) {
		t.Fatalf("controlCommand must classify as control")
	}
	if IsQuery(controlCommand) || IsReply(controlCommand) {
		t.Fatalf("control command must not also classify as query or reply")
	}
	if !IsReply(0) || !IsReply(-5) {
		t.Fatalf("zero and negative commands must classify as reply")
	}
}

func TestVersionFrameRoundTrip(t *testing.T) {
	frame := MarshalVersion(VersionPayload{Version: CurrentVersion, WantsTLS: true})
	if len(frame) != HeaderSize+versionPayloadSize {
		t.Fatalf("VERSION frame must be %d bytes, got %d", HeaderSize+versionPayloadSize, len(frame))
	}
	h, err := Unmarshal(frame[:HeaderSize])
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !IsControl(h.Command) || ControlType(h.Slot) != ControlVersion {
		t.Fatalf("expected a VERSION control header, got %+v", h)
	}
	p, err := UnmarshalVersion(frame[HeaderSize:])
	if err != nil {
		t.Fatalf("UnmarshalVersion: %v", err)
	}
	if p.Version != CurrentVersion || !p.WantsTLS {
		t.Fatalf("VersionPayload mismatch: %+v", p)
	}
}

func TestNegotiatedVersion(t *testing.T) {
	if v := NegotiatedVersion(true, true, 3, 2); v != 2 {
		t.Fatalf("want min(3,2)=2, got %d", v)
	}
	if v := NegotiatedVersion(true, false, 3, 0); v != 0 {
		t.Fatalf("omitted peer VERSION must negotiate to 0, got %d", v)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := Header{Flags: FlagHasFD, Slot: 7, Command: 0}
	payload := []byte("hello")
	if err := WriteFrame(&buf, h, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	gotH, gotPayload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if gotH.Flags != h.Flags || gotH.Slot != h.Slot || gotH.DataLength != uint32(len(payload)) {
		t.Fatalf("header mismatch: %+v", gotH)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload mismatch: %q", gotPayload)
	}
}
